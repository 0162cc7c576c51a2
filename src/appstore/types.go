package appstore

// Execution progress values for CI build runs and build actions.
const (
	ProgressPending  = "PENDING"
	ProgressRunning  = "RUNNING"
	ProgressComplete = "COMPLETE"
)

// Completion status values. Present only once execution is COMPLETE.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusErrored   = "ERRORED"
	StatusCanceled  = "CANCELED"
	StatusSkipped   = "SKIPPED"
)

// Build action types.
const (
	ActionBuild   = "BUILD"
	ActionAnalyze = "ANALYZE"
	ActionTest    = "TEST"
	ActionArchive = "ARCHIVE"
)

// Resource is the generic JSON:API resource shape returned by the
// App Store Connect API. Attributes stay raw until a typed accessor
// decodes them for the concrete resource type.
type Resource[A any] struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes A      `json:"attributes"`
}

// CollectionResponse is the envelope for list endpoints.
type CollectionResponse[A any] struct {
	Data []Resource[A] `json:"data"`
	Meta *Meta         `json:"meta,omitempty"`
}

// SingleResponse is the envelope for single-resource endpoints.
type SingleResponse[A any] struct {
	Data Resource[A] `json:"data"`
}

// Meta carries paging metadata.
type Meta struct {
	Paging struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"paging"`
}

// IssueCounts summarizes issues for a build run or action.
type IssueCounts struct {
	AnalyzerWarnings int `json:"analyzerWarnings"`
	Errors           int `json:"errors"`
	TestFailures     int `json:"testFailures"`
	Warnings         int `json:"warnings"`
}

// CommitAuthor identifies the author of a source commit.
type CommitAuthor struct {
	DisplayName string `json:"displayName"`
}

// SourceCommit describes the commit a build run was started from.
type SourceCommit struct {
	CommitSHA string        `json:"commitSha"`
	Message   string        `json:"message"`
	Author    *CommitAuthor `json:"author,omitempty"`
	WebURL    string        `json:"webUrl,omitempty"`
}

// FileSource locates an issue or test failure in the repository.
type FileSource struct {
	Path       string `json:"path"`
	LineNumber int    `json:"lineNumber,omitempty"`
}

// BuildRunAttributes are the attributes of a ciBuildRuns resource.
type BuildRunAttributes struct {
	Number             int           `json:"number"`
	CreatedDate        string        `json:"createdDate"`
	StartedDate        string        `json:"startedDate,omitempty"`
	FinishedDate       string        `json:"finishedDate,omitempty"`
	ExecutionProgress  string        `json:"executionProgress"`
	CompletionStatus   string        `json:"completionStatus,omitempty"`
	IssueCounts        *IssueCounts  `json:"issueCounts,omitempty"`
	SourceCommit       *SourceCommit `json:"sourceCommit,omitempty"`
	IsPullRequestBuild bool          `json:"isPullRequestBuild,omitempty"`
}

// BuildActionAttributes are the attributes of a ciBuildActions resource.
type BuildActionAttributes struct {
	Name              string       `json:"name"`
	ActionType        string       `json:"actionType"`
	StartedDate       string       `json:"startedDate,omitempty"`
	FinishedDate      string       `json:"finishedDate,omitempty"`
	ExecutionProgress string       `json:"executionProgress"`
	CompletionStatus  string       `json:"completionStatus,omitempty"`
	IssueCounts       *IssueCounts `json:"issueCounts,omitempty"`
}

// IssueAttributes are the attributes of a ciIssues resource.
type IssueAttributes struct {
	IssueType  string      `json:"issueType"`
	Message    string      `json:"message"`
	FileSource *FileSource `json:"fileSource,omitempty"`
}

// TestResultAttributes are the attributes of a ciTestResults resource.
type TestResultAttributes struct {
	ClassName  string      `json:"className,omitempty"`
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	FileSource *FileSource `json:"fileSource,omitempty"`
}

// ArtifactAttributes are the attributes of a ciArtifacts resource.
type ArtifactAttributes struct {
	FileType    string `json:"fileType"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// ProductAttributes are the attributes of a ciProducts resource.
type ProductAttributes struct {
	Name        string `json:"name"`
	CreatedDate string `json:"createdDate,omitempty"`
	ProductType string `json:"productType,omitempty"`
}

// WorkflowAttributes are the attributes of a ciWorkflows resource.
type WorkflowAttributes struct {
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	IsEnabled          bool   `json:"isEnabled"`
	IsLockedForEditing bool   `json:"isLockedForEditing,omitempty"`
	LastModifiedDate   string `json:"lastModifiedDate,omitempty"`
}

// GitReferenceAttributes are the attributes of a scmGitReferences resource.
type GitReferenceAttributes struct {
	Name          string `json:"name"`
	CanonicalName string `json:"canonicalName,omitempty"`
	Kind          string `json:"kind,omitempty"`
	IsDeleted     bool   `json:"isDeleted,omitempty"`
}

// RepositoryAttributes are the attributes of a scmRepositories resource.
type RepositoryAttributes struct {
	RepositoryName   string `json:"repositoryName"`
	OwnerName        string `json:"ownerName,omitempty"`
	HTTPCloneURL     string `json:"httpCloneUrl,omitempty"`
	LastAccessedDate string `json:"lastAccessedDate,omitempty"`
}

// Convenience aliases for the typed resources the client returns.
type (
	BuildRun     = Resource[BuildRunAttributes]
	BuildAction  = Resource[BuildActionAttributes]
	Issue        = Resource[IssueAttributes]
	TestResult   = Resource[TestResultAttributes]
	Artifact     = Resource[ArtifactAttributes]
	Product      = Resource[ProductAttributes]
	Workflow     = Resource[WorkflowAttributes]
	GitReference = Resource[GitReferenceAttributes]
	Repository   = Resource[RepositoryAttributes]
)
