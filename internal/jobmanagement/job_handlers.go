package jobmanagement

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/highlight"
	"speech-eval-toolkit/internal/coreengine/vendoradapters"
	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/datastore"
	"speech-eval-toolkit/internal/objectstore"
	"speech-eval-toolkit/internal/reporting"
)

// Handlers serves the scoring and job routes.
type Handlers struct {
	Service *JobService
	Store   objectstore.Store
	// Speech is nil when no speech platform key is configured.
	Speech *customspeech.Client
}

// NewHandlers wires the job routes to their dependencies.
func NewHandlers(service *JobService, store objectstore.Store, speech *customspeech.Client) *Handlers {
	return &Handlers{Service: service, Store: store, Speech: speech}
}

func parseJobID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return 0, false
	}
	return id, true
}

// rawParameters returns v as a JSON document for the job's request field.
func rawParameters(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// respondJob writes the outcome of a synchronous job run.
func respondJob(c *gin.Context, job *datastore.ScoringJob, err error) {
	if err != nil {
		if job != nil && job.Status == datastore.JobStatusFailed {
			c.JSON(http.StatusAccepted, gin.H{
				"message": "Job initiated but failed during execution.",
				"job":     job,
				"detail":  err.Error(),
			})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create or run scoring job: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, job)
}

func nullName(name string) sql.NullString {
	return sql.NullString{String: name, Valid: name != ""}
}

// ScoreRequest scores one pair without creating a job.
type ScoreRequest struct {
	ID         string `json:"id"`
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`
	Style      string `json:"style"` // html (default), bracket or terminal
}

// ScoreHandler returns WER, CER, counts, the word alignment and markup for one pair.
func (h *Handlers) ScoreHandler(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	cmp := *h.Service.Comparator
	cmp.KeepOperations = true
	if req.Style != "" {
		style, err := highlight.StyleByName(req.Style)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmp.Style = style
	}

	c.JSON(http.StatusOK, cmp.Score(evaluationengine.UtterancePair{
		ID:         req.ID,
		Reference:  req.Reference,
		Hypothesis: req.Hypothesis,
	}))
}

// CreatePairsJobRequest scores inline pairs.
type CreatePairsJobRequest struct {
	JobName string                           `json:"job_name"`
	Pairs   []evaluationengine.UtterancePair `json:"pairs" binding:"required,min=1"`
}

// CreatePairsJobHandler runs a job over pairs supplied in the request body.
func (h *Handlers) CreatePairsJobHandler(c *gin.Context) {
	var req CreatePairsJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	params := rawParameters(gin.H{"pair_count": len(req.Pairs)})
	job, err := h.Service.CreateAndRunScoringJob(c.Request.Context(), nullName(req.JobName), datastore.SourcePairs, params,
		func(context.Context) (*evaluationengine.Batch, error) {
			return &evaluationengine.Batch{Pairs: req.Pairs}, nil
		})
	respondJob(c, job, err)
}

// loadReferences reads a reference TSV from the blob store.
func (h *Handlers) loadReferences(ctx context.Context, objectKey string) ([]evaluationengine.ReferenceRecord, error) {
	data, err := h.Store.GetFileBytes(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	return evaluationengine.ParseReferenceTSV(bytes.NewReader(data))
}

// respondReferenceError maps reference loading failures to status codes.
func respondReferenceError(c *gin.Context, key string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Reference object '%s' not found", key)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to load references: " + err.Error()})
}

// CreateEvaluationJobRequest scores a platform evaluation against references.
type CreateEvaluationJobRequest struct {
	JobName            string `json:"job_name"`
	EvaluationID       string `json:"evaluation_id" binding:"required"`
	ReferenceObjectKey string `json:"reference_object_key" binding:"required"`
	Lexical            bool   `json:"lexical"`
}

// CreateEvaluationJobHandler pairs a reference TSV with the transcripts of a
// finished evaluation.
func (h *Handlers) CreateEvaluationJobHandler(c *gin.Context) {
	if h.Speech == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Speech platform is not configured"})
		return
	}
	var req CreateEvaluationJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	refs, err := h.loadReferences(c.Request.Context(), req.ReferenceObjectKey)
	if err != nil {
		respondReferenceError(c, req.ReferenceObjectKey, err)
		return
	}

	src := &customspeech.EvaluationSource{Client: h.Speech, EvaluationID: req.EvaluationID, Lexical: req.Lexical}
	job, err := h.Service.CreateAndRunScoringJob(c.Request.Context(), nullName(req.JobName), datastore.SourceEvaluation, rawParameters(req),
		func(ctx context.Context) (*evaluationengine.Batch, error) {
			return evaluationengine.PairSingleLine(ctx, refs, src)
		})
	respondJob(c, job, err)
}

// CreateObjectsJobRequest scores transcripts stored as `<prefix>/<id>.txt` objects.
type CreateObjectsJobRequest struct {
	JobName            string `json:"job_name"`
	ReferenceObjectKey string `json:"reference_object_key" binding:"required"`
	HypothesisPrefix   string `json:"hypothesis_prefix" binding:"required"`
}

// CreateObjectsJobHandler pairs a reference TSV with transcripts in the blob store.
func (h *Handlers) CreateObjectsJobHandler(c *gin.Context) {
	var req CreateObjectsJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	refs, err := h.loadReferences(c.Request.Context(), req.ReferenceObjectKey)
	if err != nil {
		respondReferenceError(c, req.ReferenceObjectKey, err)
		return
	}

	src := objectstore.TranscriptSource{Client: h.Store, Prefix: req.HypothesisPrefix}
	job, err := h.Service.CreateAndRunScoringJob(c.Request.Context(), nullName(req.JobName), datastore.SourceObjects, rawParameters(req),
		func(ctx context.Context) (*evaluationengine.Batch, error) {
			batch, err := evaluationengine.PairSingleLine(ctx, refs, src)
			if err != nil {
				return nil, err
			}
			batch.Warnings = append(batch.Warnings, h.unreferencedTranscripts(ctx, src, refs)...)
			return batch, nil
		})
	respondJob(c, job, err)
}

// unreferencedTranscripts reports transcripts under the prefix that no
// reference record names. A listing failure becomes a warning too.
func (h *Handlers) unreferencedTranscripts(ctx context.Context, src objectstore.TranscriptSource, refs []evaluationengine.ReferenceRecord) []string {
	ids, err := src.IDs(ctx, h.Store)
	if err != nil {
		log.Printf("Warning: could not list transcripts under '%s': %v", src.Prefix, err)
		return []string{fmt.Sprintf("could not list transcripts under '%s': %v", src.Prefix, err)}
	}
	known := make(map[string]bool, len(refs))
	for _, ref := range refs {
		known[ref.ID] = true
	}
	var warnings []string
	for _, id := range ids {
		if !known[id] {
			warnings = append(warnings, fmt.Sprintf("transcript '%s' has no reference", id))
		}
	}
	return warnings
}

// CreateTranscriptionJobRequest recognises audio test cases with one profile.
// Test cases are picked either by ID or by language code, not both.
type CreateTranscriptionJobRequest struct {
	JobName             string `json:"job_name"`
	RecognizerProfileID int    `json:"recognizer_profile_id" binding:"required"`
	TestCaseIDs         []int  `json:"test_case_ids"`
	LanguageCode        string `json:"language_code"`
}

// CreateTranscriptionJobHandler runs a recogniser over stored audio and
// scores the transcripts against each test case's reference text.
func (h *Handlers) CreateTranscriptionJobHandler(c *gin.Context) {
	var req CreateTranscriptionJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	hasIDs, hasLanguage := len(req.TestCaseIDs) > 0, strings.TrimSpace(req.LanguageCode) != ""
	if hasIDs == hasLanguage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one of test_case_ids or language_code is required"})
		return
	}

	profile, err := datastore.GetRecognizerProfile(req.RecognizerProfileID)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Recognizer profile with ID %d not found", req.RecognizerProfileID)})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recognizer profile: " + err.Error()})
		}
		return
	}

	cases, ok := selectTestCases(c, req)
	if !ok {
		return
	}

	adapter, err := vendoradapters.GetASRAdapter(profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src := vendoradapters.NewRecognizerSource(h.Store, adapter, profile, cases)
	job, err := h.Service.CreateAndRunScoringJob(c.Request.Context(), nullName(req.JobName), datastore.SourceTranscription, rawParameters(req),
		func(ctx context.Context) (*evaluationengine.Batch, error) {
			batch, err := evaluationengine.PairSingleLine(ctx, src.References(), src)
			if err != nil {
				return nil, err
			}
			src.AttachLatencies(batch)
			return batch, nil
		})
	respondJob(c, job, err)
}

// selectTestCases loads the test cases a transcription request names and
// writes the error response itself when it returns false.
func selectTestCases(c *gin.Context, req CreateTranscriptionJobRequest) ([]*datastore.AudioTestCase, bool) {
	if len(req.TestCaseIDs) == 0 {
		lang := strings.TrimSpace(req.LanguageCode)
		cases, err := datastore.ListAudioTestCases(lang)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list test cases: " + err.Error()})
			return nil, false
		}
		if len(cases) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No test cases found for language code '%s'", lang)})
			return nil, false
		}
		return cases, true
	}

	cases := make([]*datastore.AudioTestCase, 0, len(req.TestCaseIDs))
	for _, id := range req.TestCaseIDs {
		tc, err := datastore.GetAudioTestCase(id)
		if err != nil {
			if errors.Is(err, datastore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Test case with ID %d not found", id)})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve test case: " + err.Error()})
			}
			return nil, false
		}
		cases = append(cases, tc)
	}
	return cases, true
}

// GetJobHandler retrieves a scoring job by its ID.
func (h *Handlers) GetJobHandler(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := datastore.GetScoringJob(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler lists scoring jobs, optionally filtered by ?source= and ?status=.
func (h *Handlers) ListJobsHandler(c *gin.Context) {
	jobs, err := datastore.ListScoringJobs(c.Query("source"), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs: " + err.Error()})
		return
	}
	if jobs == nil {
		jobs = []*datastore.ScoringJob{}
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJobResultsHandler returns a job's results as JSON with a summary, or as
// a csv, html or markdown report selected by ?format=.
func (h *Handlers) GetJobResultsHandler(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	if _, err := datastore.GetScoringJob(jobID); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job with ID %d not found", jobID)})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify job existence: " + err.Error()})
		}
		return
	}

	rows, err := datastore.GetUtteranceResultsForJob(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve results for job: " + err.Error()})
		return
	}
	results := ToResults(rows)

	format := c.DefaultQuery("format", "json")
	if format == "md" {
		format = reporting.FormatMarkdown
	}
	if format == "json" {
		if rows == nil {
			rows = []*datastore.UtteranceResult{}
		}
		c.JSON(http.StatusOK, gin.H{
			"summary": reporting.Summarize(results),
			"results": rows,
		})
		return
	}

	var buf bytes.Buffer
	if err := reporting.Write(&buf, format, results); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, reporting.ContentType(format), buf.Bytes())
}
