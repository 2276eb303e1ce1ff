package shared

const (
	ProjectID = "fitglue-project" // Can be overridden by env var in main if needed

	TopicEnrichedActivity = "topic-enriched-activity"
	TopicEnrichmentLag    = "topic-enrichment-lag"

	CollectionUsers         = "users"
	CollectionExecutions    = "executions"
	CollectionPipelines     = "pipelines"
	CollectionPendingInputs = "pending_inputs"
)
