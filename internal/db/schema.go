package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- JOB TABLE (transcription jobs)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS filename ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS original_path ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS output_dir ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS size_bytes ON job TYPE int DEFAULT 0;

    DEFINE FIELD IF NOT EXISTS engine ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS language ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS min_speakers ON job TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS max_speakers ON job TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS context ON job TYPE option<string>;

    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT 'draft'
        ASSERT $value IN ['draft', 'queued', 'processing', 'diarizing', 'completed', 'failed'];
    DEFINE FIELD IF NOT EXISTS progress ON job TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS error_message ON job TYPE option<string>;

    DEFINE FIELD IF NOT EXISTS duration_seconds ON job TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS speakers_count ON job TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS language_detected ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS processing_seconds ON job TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS speaker_names ON job TYPE option<object> FLEXIBLE;

    DEFINE FIELD IF NOT EXISTS created_at ON job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS started_at ON job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_created ON job FIELDS created_at;

    -- ==========================================================================
    -- OPERATION TABLE (append-only LLM operation log)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS operation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_id ON operation TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON operation TYPE string
        ASSERT $value IN ['cleanup', 'insights'];
    DEFINE FIELD IF NOT EXISTS provider ON operation TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON operation TYPE string;
    DEFINE FIELD IF NOT EXISTS template_id ON operation TYPE string;
    DEFINE FIELD IF NOT EXISTS temperature ON operation TYPE float DEFAULT 0.0;

    DEFINE FIELD IF NOT EXISTS input_tokens ON operation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS output_tokens ON operation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cost_usd ON operation TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS processing_seconds ON operation TYPE float DEFAULT 0.0;

    DEFINE FIELD IF NOT EXISTS status ON operation TYPE string DEFAULT 'running'
        ASSERT $value IN ['running', 'success', 'failed'];
    DEFINE FIELD IF NOT EXISTS error_message ON operation TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON operation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS operation_job ON operation FIELDS job_id;
    DEFINE INDEX IF NOT EXISTS operation_created ON operation FIELDS created_at;
`
