// Package artifact manages the per-job output directory: transcripts,
// cleanup results, speaker suggestions, insights and their logs.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

const (
	transcriptFile  = "transcript.json"
	transcriptTxt   = "transcript.txt"
	cleanedFile     = "transcript_cleaned.json"
	cleanedTxt      = "transcript_cleaned.txt"
	suggestionsFile = "speaker_suggestions.json"
	cleanupLogFile  = "postprocessing_log.json"
	insightsLogFile = "insights_log.json"
)

// speakerColors is the fixed palette assigned to speakers in first-seen
// order, wrapping for the seventh speaker onward.
var speakerColors = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899",
}

// ErrNotFound is returned when a requested artifact file does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store reads and writes job artifacts under a base transcriptions
// directory. One job owns one directory; the store never reaches across.
type Store struct {
	base   string
	logger *slog.Logger
}

// NewStore creates a store rooted at the transcribed output directory.
func NewStore(base string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{base: base, logger: logger}
}

// CreateJobDir creates the output directory for a job, named
// "<YYYY-MM-DD>_<stem>" after the upload date and source filename, and
// copies the original audio into it.
func (s *Store) CreateJobDir(audioPath string, now time.Time) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	dir := filepath.Join(s.base, fmt.Sprintf("%s_%s", now.UTC().Format("2006-01-02"), stem))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if err := copyFile(audioPath, filepath.Join(dir, filepath.Base(audioPath))); err != nil {
		return "", fmt.Errorf("copy original audio: %w", err)
	}

	return dir, nil
}

// SaveTranscript writes transcript.json and the matching transcript.txt.
func (s *Store) SaveTranscript(dir string, t *models.Transcript) error {
	if err := writeJSON(filepath.Join(dir, transcriptFile), t); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, transcriptTxt), []byte(formatTranscriptTxt(t)), 0o644)
}

// LoadTranscript reads transcript.json from a job directory.
func (s *Store) LoadTranscript(dir string) (*models.Transcript, error) {
	var t models.Transcript
	if err := readJSON(filepath.Join(dir, transcriptFile), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveCleaned writes transcript_cleaned.json and transcript_cleaned.txt.
func (s *Store) SaveCleaned(dir string, c *models.CleanedTranscript) error {
	if err := writeJSON(filepath.Join(dir, cleanedFile), c); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cleanedTxt), []byte(formatCleanedTxt(c)), 0o644)
}

// LoadCleaned reads transcript_cleaned.json from a job directory.
func (s *Store) LoadCleaned(dir string) (*models.CleanedTranscript, error) {
	var c models.CleanedTranscript
	if err := readJSON(filepath.Join(dir, cleanedFile), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveSuggestions writes speaker_suggestions.json.
func (s *Store) SaveSuggestions(dir string, set *models.SuggestionSet) error {
	return writeJSON(filepath.Join(dir, suggestionsFile), set)
}

// LoadSuggestions reads speaker_suggestions.json.
func (s *Store) LoadSuggestions(dir string) (*models.SuggestionSet, error) {
	var set models.SuggestionSet
	if err := readJSON(filepath.Join(dir, suggestionsFile), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// SaveInsights writes insights_<template>.json, replacing any previous
// document for the same template.
func (s *Store) SaveInsights(dir string, ins *models.Insights) error {
	name := fmt.Sprintf("insights_%s.json", ins.Metadata.TemplateID)
	return writeJSON(filepath.Join(dir, name), ins)
}

// LoadInsights reads the stored insights document for a template.
func (s *Store) LoadInsights(dir, templateID string) (*models.Insights, error) {
	var ins models.Insights
	name := fmt.Sprintf("insights_%s.json", templateID)
	if err := readJSON(filepath.Join(dir, name), &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}

// ListInsights returns summaries of all stored insights documents,
// newest first. Unreadable files are skipped.
func (s *Store) ListInsights(dir string) ([]models.InsightsSummary, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "insights_*.json"))
	if err != nil {
		return nil, err
	}

	var out []models.InsightsSummary
	for _, path := range matches {
		if filepath.Base(path) == insightsLogFile {
			continue
		}
		var ins models.Insights
		if err := readJSON(path, &ins); err != nil {
			s.logger.Warn("skipping unreadable insights file", "path", path, "error", err)
			continue
		}
		out = append(out, models.InsightsSummary{
			TemplateID:   ins.Metadata.TemplateID,
			TemplateName: ins.Metadata.TemplateName,
			CreatedAt:    ins.Metadata.CreatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// SourceAvailability reports which transcript sources exist for insights.
func (s *Store) SourceAvailability(dir string) models.SourceAvailability {
	return models.SourceAvailability{
		Original: fileExists(filepath.Join(dir, transcriptFile)),
		Cleaned:  fileExists(filepath.Join(dir, cleanedFile)),
	}
}

// LogEntry is one line of a per-job operation log file.
type LogEntry struct {
	ID                string   `json:"id"`
	Timestamp         string   `json:"timestamp"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model"`
	Template          string   `json:"template,omitempty"`
	TemplateID        string   `json:"template_id,omitempty"`
	Source            string   `json:"source,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	CostUSD           *float64 `json:"cost_usd,omitempty"`
	ProcessingSeconds float64  `json:"processing_time_seconds"`
	Status            string   `json:"status"`
}

type operationLog struct {
	Operations []LogEntry `json:"operations"`
}

// AppendCleanupLog appends an entry to postprocessing_log.json.
func (s *Store) AppendCleanupLog(dir string, entry LogEntry) error {
	return appendLog(filepath.Join(dir, cleanupLogFile), entry)
}

// AppendInsightsLog appends an entry to insights_log.json.
func (s *Store) AppendInsightsLog(dir string, entry LogEntry) error {
	return appendLog(filepath.Join(dir, insightsLogFile), entry)
}

// ReadInsightsLog returns the insights operation log, empty when absent.
func (s *Store) ReadInsightsLog(dir string) ([]LogEntry, error) {
	var log operationLog
	err := readJSON(filepath.Join(dir, insightsLogFile), &log)
	if errors.Is(err, ErrNotFound) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return log.Operations, nil
}

func appendLog(path string, entry LogEntry) error {
	var log operationLog
	if err := readJSON(path, &log); err != nil && !errors.Is(err, ErrNotFound) {
		// A corrupt log is restarted rather than blocking the operation.
		log = operationLog{}
	}

	entry.ID = strconv.Itoa(len(log.Operations) + 1)
	log.Operations = append(log.Operations, entry)

	return writeJSON(path, &log)
}

// RegenerateTranscriptTxt rewrites the TXT renderings after a speaker
// rename so downloads stay consistent with the JSON artifacts.
func (s *Store) RegenerateTranscriptTxt(dir string, names map[string]string) error {
	t, err := s.LoadTranscript(dir)
	if err != nil {
		return err
	}
	t.RenameSpeakers(names)
	if err := s.SaveTranscript(dir, t); err != nil {
		return err
	}

	c, err := s.LoadCleaned(dir)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for id, name := range names {
		if sp, ok := c.Speakers[id]; ok {
			sp.Name = name
			c.Speakers[id] = sp
		}
	}
	return s.SaveCleaned(dir, c)
}

// BuildSpeakers assigns palette colors to speakers in first-seen segment
// order. The speaker id doubles as the initial display name.
func BuildSpeakers(segments []models.Segment) map[string]models.Speaker {
	speakers := map[string]models.Speaker{}
	for _, seg := range segments {
		id := seg.Speaker
		if id == "" {
			id = "SPEAKER_UNKNOWN"
		}
		if _, ok := speakers[id]; !ok {
			speakers[id] = models.Speaker{
				Name:  id,
				Color: speakerColors[len(speakers)%len(speakerColors)],
			}
		}
	}
	return speakers
}

// FormatTimestamp renders seconds as HH:MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// FormatDuration renders seconds as M:SS, with hours only when present.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSegmentsForLLM renders segments in the "[HH:MM:SS] SPEAKER: text"
// form used for both LLM input and the TXT downloads.
func FormatSegmentsForLLM(segments []models.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "SPEAKER_UNKNOWN"
		}
		fmt.Fprintf(&b, "[%s] %s: %s", FormatTimestamp(seg.Start), speaker, seg.Text)
	}
	return b.String()
}

func formatTranscriptTxt(t *models.Transcript) string {
	var names []string
	for _, id := range speakerOrder(t.Speakers, t.Segments) {
		names = append(names, t.Speakers[id].Name)
	}

	lines := []string{
		fmt.Sprintf("Transcription: %s", t.Metadata.Filename),
		fmt.Sprintf("Date: %s", clipDate(t.Metadata.CreatedAt)),
		fmt.Sprintf("Duration: %s", FormatDuration(t.Metadata.DurationSeconds)),
		fmt.Sprintf("Participants: %s", strings.Join(names, ", ")),
		"",
		strings.Repeat("-", 40),
		"",
	}

	for _, seg := range t.Segments {
		lines = append(lines, formatSegmentLine(seg, t.Speakers), "")
	}

	lines = append(lines, strings.Repeat("-", 40))
	return strings.Join(lines, "\n")
}

func formatCleanedTxt(c *models.CleanedTranscript) string {
	lines := []string{
		fmt.Sprintf("Cleaned Transcript: %s", c.Metadata.Filename),
		fmt.Sprintf("Cleaned: %s", clipDate(c.Metadata.CleanedAt)),
		fmt.Sprintf("Template: %s", c.Metadata.Template),
		fmt.Sprintf("Model: %s", c.Metadata.Model),
		"",
		strings.Repeat("-", 40),
		"",
	}

	for _, seg := range c.Segments {
		lines = append(lines, formatSegmentLine(seg, c.Speakers), "")
	}

	lines = append(lines, strings.Repeat("-", 40))
	return strings.Join(lines, "\n")
}

func formatSegmentLine(seg models.Segment, speakers map[string]models.Speaker) string {
	name := seg.Speaker
	if sp, ok := speakers[seg.Speaker]; ok {
		name = sp.Name
	}
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("[%s] %s: %s", FormatTimestamp(seg.Start), name, seg.Text)
}

// speakerOrder lists speaker ids in first-seen segment order so the
// participants line is stable.
func speakerOrder(speakers map[string]models.Speaker, segments []models.Segment) []string {
	seen := map[string]bool{}
	var order []string
	for _, seg := range segments {
		if _, ok := speakers[seg.Speaker]; ok && !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			order = append(order, seg.Speaker)
		}
	}
	// Speakers without segments still get listed.
	var rest []string
	for id := range speakers {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func clipDate(iso string) string {
	if len(iso) >= 10 {
		return iso[:10]
	}
	return iso
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
