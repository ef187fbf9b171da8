package customspeech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Entity statuses reported by the platform.
const (
	StatusNotStarted = "NotStarted"
	StatusRunning    = "Running"
	StatusSucceeded  = "Succeeded"
	StatusFailed     = "Failed"
)

// Ref links one entity to another.
type Ref struct {
	Self string `json:"self"`
}

// Entity holds the fields every platform resource shares.
type Entity struct {
	Self               string          `json:"self,omitempty"`
	DisplayName        string          `json:"displayName,omitempty"`
	Description        string          `json:"description,omitempty"`
	Locale             string          `json:"locale,omitempty"`
	Status             string          `json:"status,omitempty"`
	CreatedDateTime    string          `json:"createdDateTime,omitempty"`
	LastActionDateTime string          `json:"lastActionDateTime,omitempty"`
	Links              json.RawMessage `json:"links,omitempty"`
	Properties         json.RawMessage `json:"properties,omitempty"`
}

// ID is the last segment of Self.
func (e Entity) ID() string { return IDFromSelf(e.Self) }

// ProjectSpec describes a new project.
type ProjectSpec struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// CreateProject creates a project and returns its ID.
func (c *Client) CreateProject(ctx context.Context, spec ProjectSpec) (string, error) {
	id, err := c.create(ctx, "projects", spec)
	if err != nil {
		return "", fmt.Errorf("failed to create project: %w", err)
	}
	return id, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if err := c.delete(ctx, "projects/"+id); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

// Dataset kinds accepted by the platform.
const (
	DatasetKindAcoustic = "Acoustic"
	DatasetKindLanguage = "Language"
)

// DatasetSpec describes a dataset whose content the platform pulls from ContentURL.
type DatasetSpec struct {
	ProjectID   string
	ContentURL  string
	Kind        string
	DisplayName string
	Description string
	Locale      string
}

type datasetBody struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	ContentURL  string `json:"contentUrl"`
	Locale      string `json:"locale"`
	Project     *Ref   `json:"project,omitempty"`
}

// Dataset is a dataset resource.
type Dataset struct {
	Entity
	Kind       string `json:"kind"`
	ContentURL string `json:"contentUrl"`
}

// CreateDataset creates a dataset and returns its ID.
func (c *Client) CreateDataset(ctx context.Context, spec DatasetSpec) (string, error) {
	body := datasetBody{
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Kind:        spec.Kind,
		ContentURL:  spec.ContentURL,
		Locale:      spec.Locale,
	}
	if spec.ProjectID != "" {
		body.Project = c.Ref("projects/" + spec.ProjectID)
	}
	id, err := c.create(ctx, "datasets", body)
	if err != nil {
		return "", fmt.Errorf("failed to create dataset: %w", err)
	}
	return id, nil
}

// Dataset fetches a dataset.
func (c *Client) Dataset(ctx context.Context, id string) (*Dataset, error) {
	var ds Dataset
	if err := c.get(ctx, "datasets/"+id, &ds); err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", id, err)
	}
	return &ds, nil
}

// DatasetContentURL returns the content URL recorded for a dataset.
func (c *Client) DatasetContentURL(ctx context.Context, id string) (string, error) {
	ds, err := c.Dataset(ctx, id)
	if err != nil {
		return "", err
	}
	return ds.ContentURL, nil
}

// Model is a base or custom model resource.
type Model struct {
	Entity
	BaseModel *Ref  `json:"baseModel,omitempty"`
	Datasets  []Ref `json:"datasets,omitempty"`
	Project   *Ref  `json:"project,omitempty"`
}

// BaseModel fetches a base model.
func (c *Client) BaseModel(ctx context.Context, id string) (*Model, error) {
	var m Model
	if err := c.get(ctx, "models/base/"+id, &m); err != nil {
		return nil, fmt.Errorf("failed to get base model %s: %w", id, err)
	}
	return &m, nil
}

// ModelSpec describes a custom model trained from datasets on a base model.
type ModelSpec struct {
	ProjectID   string
	BaseModelID string
	DatasetIDs  []string
	DisplayName string
	Description string
	Locale      string
}

// CreateModel starts training a custom model and returns its ID.
func (c *Client) CreateModel(ctx context.Context, spec ModelSpec) (string, error) {
	if len(spec.DatasetIDs) == 0 {
		return "", errors.New("failed to create model: at least one dataset is required")
	}
	body := Model{
		Entity: Entity{
			DisplayName: spec.DisplayName,
			Description: spec.Description,
			Locale:      spec.Locale,
		},
		BaseModel: c.Ref("models/base/" + spec.BaseModelID),
	}
	for _, ds := range spec.DatasetIDs {
		body.Datasets = append(body.Datasets, *c.Ref("datasets/" + ds))
	}
	if spec.ProjectID != "" {
		body.Project = c.Ref("projects/" + spec.ProjectID)
	}
	id, err := c.create(ctx, "models", body)
	if err != nil {
		return "", fmt.Errorf("failed to create model: %w", err)
	}
	return id, nil
}

// Model fetches a custom model.
func (c *Client) Model(ctx context.Context, id string) (*Model, error) {
	var m Model
	if err := c.get(ctx, "models/"+id, &m); err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", id, err)
	}
	return &m, nil
}

// ModelStatus returns the training status of a custom model.
func (c *Client) ModelStatus(ctx context.Context, id string) (string, error) {
	m, err := c.Model(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// EvaluationSpec compares two models on one dataset. A model ID prefixed
// with "base/" refers to a base model.
type EvaluationSpec struct {
	ProjectID   string
	DatasetID   string
	Model1ID    string
	Model2ID    string
	DisplayName string
	Description string
	Locale      string
}

type evaluationBody struct {
	Model1      *Ref   `json:"model1"`
	Model2      *Ref   `json:"model2"`
	Dataset     *Ref   `json:"dataset"`
	Project     *Ref   `json:"project,omitempty"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// EvaluationProperties are the aggregate metrics of a finished evaluation.
type EvaluationProperties struct {
	WordErrorRate1         float64 `json:"wordErrorRate1"`
	SentenceErrorRate1     float64 `json:"sentenceErrorRate1"`
	WordSubstitutionCount1 int     `json:"wordSubstitutionCount1"`
	WordDeletionCount1     int     `json:"wordDeletionCount1"`
	WordInsertionCount1    int     `json:"wordInsertionCount1"`
	WordErrorRate2         float64 `json:"wordErrorRate2"`
	SentenceErrorRate2     float64 `json:"sentenceErrorRate2"`
	WordSubstitutionCount2 int     `json:"wordSubstitutionCount2"`
	WordDeletionCount2     int     `json:"wordDeletionCount2"`
	WordInsertionCount2    int     `json:"wordInsertionCount2"`
	WordCount              int     `json:"wordCount"`
	SentenceCount          int     `json:"sentenceCount"`
}

// Evaluation is an evaluation resource. Entity.Properties keeps the raw
// document; Metrics decodes the common fields.
type Evaluation struct {
	Entity
	Model1  *Ref                 `json:"model1,omitempty"`
	Model2  *Ref                 `json:"model2,omitempty"`
	Dataset *Ref                 `json:"dataset,omitempty"`
	Metrics EvaluationProperties `json:"metrics"`
}

// CreateEvaluation starts an evaluation and returns its ID.
func (c *Client) CreateEvaluation(ctx context.Context, spec EvaluationSpec) (string, error) {
	body := evaluationBody{
		Model1:      c.Ref("models/" + spec.Model1ID),
		Model2:      c.Ref("models/" + spec.Model2ID),
		Dataset:     c.Ref("datasets/" + spec.DatasetID),
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Locale:      spec.Locale,
	}
	if spec.ProjectID != "" {
		body.Project = c.Ref("projects/" + spec.ProjectID)
	}
	id, err := c.create(ctx, "evaluations", body)
	if err != nil {
		return "", fmt.Errorf("failed to create evaluation: %w", err)
	}
	return id, nil
}

// Evaluation fetches an evaluation with its metrics.
func (c *Client) Evaluation(ctx context.Context, id string) (*Evaluation, error) {
	var ev Evaluation
	if err := c.get(ctx, "evaluations/"+id, &ev); err != nil {
		return nil, fmt.Errorf("failed to get evaluation %s: %w", id, err)
	}
	if len(ev.Properties) > 0 {
		if err := json.Unmarshal(ev.Properties, &ev.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode evaluation %s properties: %w", id, err)
		}
	}
	return &ev, nil
}

// EvaluationStatus returns the status of an evaluation.
func (c *Client) EvaluationStatus(ctx context.Context, id string) (string, error) {
	ev, err := c.Evaluation(ctx, id)
	if err != nil {
		return "", err
	}
	return ev.Status, nil
}

// File is one result file of an evaluation.
type File struct {
	Self  string `json:"self"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Links struct {
		ContentURL string `json:"contentUrl"`
	} `json:"links"`
}

type filePage struct {
	Values   []File `json:"values"`
	NextLink string `json:"@nextLink"`
}

// EvaluationFiles lists every result file of an evaluation, following pagination.
func (c *Client) EvaluationFiles(ctx context.Context, id string) ([]File, error) {
	var files []File
	next := c.URL("evaluations/" + id + "/files")
	for next != "" {
		var page filePage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list files of evaluation %s: %w", id, err)
		}
		files = append(files, page.Values...)
		next = page.NextLink
	}
	return files, nil
}

// EndpointSpec deploys a model.
type EndpointSpec struct {
	ProjectID   string
	ModelID     string
	DisplayName string
	Description string
	Locale      string
}

type endpointBody struct {
	Model       *Ref   `json:"model"`
	Project     *Ref   `json:"project,omitempty"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// CreateEndpoint deploys a model and returns the endpoint ID.
func (c *Client) CreateEndpoint(ctx context.Context, spec EndpointSpec) (string, error) {
	body := endpointBody{
		Model:       c.Ref("models/" + spec.ModelID),
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Locale:      spec.Locale,
	}
	if spec.ProjectID != "" {
		body.Project = c.Ref("projects/" + spec.ProjectID)
	}
	id, err := c.create(ctx, "endpoints", body)
	if err != nil {
		return "", fmt.Errorf("failed to create endpoint: %w", err)
	}
	return id, nil
}

// EndpointStatus returns the deployment status of an endpoint.
func (c *Client) EndpointStatus(ctx context.Context, id string) (string, error) {
	var e Entity
	if err := c.get(ctx, "endpoints/"+id, &e); err != nil {
		return "", fmt.Errorf("failed to get endpoint %s: %w", id, err)
	}
	return e.Status, nil
}

// DeleteEndpoint removes an endpoint.
func (c *Client) DeleteEndpoint(ctx context.Context, id string) error {
	if err := c.delete(ctx, "endpoints/"+id); err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", id, err)
	}
	return nil
}
