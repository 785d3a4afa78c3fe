package nodes

// Graph node keys.
const (
	NodeInputConverter        = "InputConverter"
	NodeExporter              = "Exporter"
	NodeClassifier            = "Classifier"
	NodeExtractor             = "Extractor"
	NodeRanker                = "Ranker"
	NodeAnswerAssembler       = "AnswerAssembler"
	NodeAnswerChatModel       = "AnswerChatModel"
	NodeToolExecutor          = "ToolExecutor"
	NodeRefusal               = "Refusal"
	NodeClassificationFailure = "ClassificationFailure"
)
