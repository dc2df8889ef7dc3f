package template

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Section is one requested block of an insights document.
type Section struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// InsightTemplate configures one insights-extraction pass.
type InsightTemplate struct {
	ID             string    `yaml:"id" json:"id"`
	Name           string    `yaml:"name" json:"name"`
	Description    string    `yaml:"description" json:"description"`
	IncludeMindmap bool      `yaml:"include_mindmap" json:"include_mindmap"`
	Sections       []Section `yaml:"sections" json:"sections"`
	SystemPrompt   string    `yaml:"system_prompt,omitempty" json:"system_prompt"`
	Temperature    float64   `yaml:"temperature" json:"temperature"`
	BuiltIn        bool      `yaml:"-" json:"built_in"`
}

const insightsBaselinePrompt = `You are an expert meeting analyst. Your task is to extract structured insights from a meeting transcript.

## INPUT FORMAT
The transcript contains timestamped dialogue:
[HH:MM:SS] SPEAKER_XX: text

## LANGUAGE HANDLING
- The transcript may contain mixed Russian and English (code-switching)
- Analyze meaning in both languages
- Generate output in the SAME primary language as the input
- Preserve technical terms and proper nouns

## OUTPUT FORMAT (STRICT JSON)
Return a JSON object with the following structure:

{
  "description": "Brief 1-2 sentence summary of the meeting",
  "sections": [
    {
      "id": "section_id",
      "title": "Section Title",
      "content": "Markdown formatted content..."
    }
  ],
  "mindmap": {
    "format": "markdown",
    "content": "# Root Topic\n\n## Branch 1\n- Item 1\n- Item 2\n\n## Branch 2\n- Item 3"
  }
}

## SECTION REQUIREMENTS
%s

## MINDMAP REQUIREMENTS (if requested)
%s

Generate the mindmap in standard Markdown format with headings (#, ##) and lists (-, *).
The mindmap should capture the hierarchical structure of the discussion.

## QUALITY RULES
1. Be specific - use names, dates, numbers from the transcript
2. Quote relevant phrases for action items and decisions
3. If something is unclear, note the uncertainty
4. Don't invent information not present in the transcript

Return ONLY the JSON object, no explanations.`

// BuildSystemPrompt assembles the full prompt for a template from the
// baseline plus its section and mindmap instructions.
func BuildSystemPrompt(t InsightTemplate) string {
	return fmt.Sprintf(insightsBaselinePrompt, sectionInstructions(t.Sections), mindmapInstructions(t.IncludeMindmap))
}

func sectionInstructions(sections []Section) string {
	lines := []string{"Generate the following sections:\n"}
	for _, s := range sections {
		lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", s.Title, s.ID, s.Description))
	}
	return strings.Join(lines, "\n")
}

func mindmapInstructions(include bool) string {
	if include {
		return `Create a hierarchical mindmap that:
- Has a clear root node (meeting topic)
- Contains 4-6 main branches (key themes)
- Decomposes into 2-3 levels of detail
- Uses concise node labels (1-5 words)`
	}
	return "Mindmap is NOT required. Set mindmap to null in the response."
}

func defaultInsightTemplates() []InsightTemplate {
	return []InsightTemplate{
		{
			ID: "it-meeting", Name: "IT Meeting",
			Description:    "Standups, sprint reviews, architecture discussions",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "decisions", Title: "Key Decisions", Description: "Technical and process decisions made during the meeting"},
				{ID: "blockers", Title: "Blockers", Description: "Issues blocking progress, dependencies, risks"},
				{ID: "action_items", Title: "Action Items", Description: "Tasks with assignees (@name) and deadlines if mentioned"},
				{ID: "technical_notes", Title: "Technical Notes", Description: "Architecture decisions, code discussions, tech debt notes"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "sales-call", Name: "Sales Call",
			Description:    "Client calls, sales meetings, demos",
			IncludeMindmap: false,
			Sections: []Section{
				{ID: "pain_points", Title: "Pain Points", Description: "Customer problems and challenges mentioned"},
				{ID: "objections", Title: "Objections", Description: "Concerns, pushback, reasons for hesitation"},
				{ID: "next_steps", Title: "Next Steps", Description: "Agreed follow-up actions and timeline"},
				{ID: "competitor_mentions", Title: "Competitor Mentions", Description: "Any references to competing solutions"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "business-meeting", Name: "Business Meeting",
			Description:    "Strategic discussions, planning sessions",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "key_decisions", Title: "Key Decisions", Description: "Strategic and business decisions made"},
				{ID: "action_items", Title: "Action Items", Description: "Tasks with owners and deadlines"},
				{ID: "stakeholder_concerns", Title: "Stakeholder Concerns", Description: "Issues raised by participants"},
				{ID: "follow_ups", Title: "Follow-ups", Description: "Items requiring future discussion or review"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "interview", Name: "Interview",
			Description:    "Job interviews, candidate assessments",
			IncludeMindmap: false,
			Sections: []Section{
				{ID: "candidate_assessment", Title: "Candidate Assessment", Description: "Key strengths, weaknesses, and fit evaluation"},
				{ID: "key_qa", Title: "Key Q&A", Description: "Important questions asked and candidate's responses"},
				{ID: "red_green_flags", Title: "Red/Green Flags", Description: "Positive indicators and concerns noted"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "retrospective", Name: "Retrospective",
			Description:    "Sprint retros, post-mortems, team reviews",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "wins", Title: "Wins", Description: "What went well, successes, positive outcomes"},
				{ID: "issues", Title: "Issues", Description: "What went wrong, problems, challenges faced"},
				{ID: "action_plan", Title: "Action Plan", Description: "Specific improvements and who will implement them"},
				{ID: "team_sentiment", Title: "Team Sentiment", Description: "Overall mood, concerns about workload, morale"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "brainstorm", Name: "Brainstorm",
			Description:    "Ideation sessions, creative discussions",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "ideas", Title: "Ideas", Description: "All ideas proposed, categorized by theme if possible"},
				{ID: "decisions", Title: "Decisions", Description: "Which ideas were selected or prioritized"},
				{ID: "next_steps", Title: "Next Steps", Description: "How to move forward with selected ideas"},
			},
			Temperature: 0.4, BuiltIn: true,
		},
		{
			ID: "podcast", Name: "Podcast",
			Description:    "Audio shows, conversations, long-form discussions",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "key_topics", Title: "Key Topics", Description: "Main themes and subjects discussed in the episode"},
				{ID: "notable_insights", Title: "Notable Insights", Description: "Interesting ideas, opinions, and perspectives shared"},
				{ID: "recommendations", Title: "Recommendations", Description: "Books, tools, resources, people mentioned by guests/hosts"},
				{ID: "takeaways", Title: "Key Takeaways", Description: "Main conclusions and actionable advice from the episode"},
			},
			Temperature: 0.4, BuiltIn: true,
		},
		{
			ID: "design-call", Name: "Design Call",
			Description:    "UI/UX design reviews, mockup discussions",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "design_decisions", Title: "Design Decisions", Description: "UI/UX decisions made - layout choices, component selection, visual direction"},
				{ID: "feedback", Title: "Feedback & Iterations", Description: "Comments on mockups, requested changes, alternative options discussed"},
				{ID: "open_questions", Title: "Open Questions", Description: "Unresolved design questions, items needing user research or stakeholder input"},
				{ID: "action_items", Title: "Action Items", Description: "Tasks for designer (@name) - mockup updates, new screens, asset preparation"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "grooming", Name: "Grooming",
			Description:    "Story point estimation, sprint planning",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "estimated_stories", Title: "Estimated Stories", Description: "User stories discussed with final story point estimates"},
				{ID: "estimation_rationale", Title: "Estimation Rationale", Description: "Key factors affecting estimates - complexity, unknowns, dependencies, tech debt"},
				{ID: "scope_concerns", Title: "Scope Concerns", Description: "Stories flagged as too large, unclear, or needing decomposition"},
				{ID: "sprint_readiness", Title: "Sprint Readiness", Description: "Stories ready for sprint, blocked stories, missing acceptance criteria"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
		{
			ID: "feature-discussion", Name: "Feature Discussion",
			Description:    "1-on-1 feature explanations with developers or QA",
			IncludeMindmap: true,
			Sections: []Section{
				{ID: "feature_scope", Title: "Feature Scope", Description: "What is included and excluded from the feature, boundaries, MVP vs future phases"},
				{ID: "requirements_clarified", Title: "Requirements Clarified", Description: "Specific requirements discussed, acceptance criteria mentioned, edge cases covered"},
				{ID: "tickets_mentioned", Title: "Tickets & References", Description: "Epics, user stories, tickets, PRs mentioned with their context"},
				{ID: "open_questions", Title: "Open Questions", Description: "Questions that remained unanswered or need further clarification"},
				{ID: "action_items", Title: "Action Items", Description: "Tasks for participants (@name) after the call"},
			},
			Temperature: 0.3, BuiltIn: true,
		},
	}
}

// InsightService serves insight templates the same way CleanupService
// serves cleanup ones. Get always returns a template with the system
// prompt filled in.
type InsightService struct {
	dir string
}

func NewInsightService(dir string) (*InsightService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create insight templates dir: %w", err)
	}
	return &InsightService{dir: dir}, nil
}

// List returns all templates sorted by name.
func (s *InsightService) List() ([]InsightTemplate, error) {
	byID := make(map[string]InsightTemplate)
	for _, t := range defaultInsightTemplates() {
		byID[t.ID] = t
	}

	users, err := loadYAMLTemplates[InsightTemplate](s.dir)
	if err != nil {
		return nil, err
	}
	for _, t := range users {
		byID[t.ID] = t
	}

	out := make([]InsightTemplate, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a template by id with its system prompt built.
func (s *InsightService) Get(id string) (*InsightTemplate, error) {
	templates, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if t.ID == id {
			if t.SystemPrompt == "" {
				t.SystemPrompt = BuildSystemPrompt(t)
			}
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save creates or updates a user template.
func (s *InsightService) Save(t InsightTemplate) error {
	if t.ID == "" {
		return ErrMissingID
	}
	t.BuiltIn = false
	return writeYAMLTemplate(s.dir, t.ID, t)
}

// Delete removes a user template. Built-ins cannot be deleted.
func (s *InsightService) Delete(id string) error {
	for _, t := range defaultInsightTemplates() {
		if t.ID == id {
			return ErrDefaultTemplate
		}
	}
	return deleteYAMLTemplate(s.dir, id)
}
