package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) Users() *Collection[types.UserRecord] {
	return &Collection[types.UserRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers),
		ToFirestore:   UserToFirestore,
		FromFirestore: FirestoreToUser,
	}
}

// UserPipelines are sub-collections of Users: users/{uid}/pipelines/{id}
func (c *Client) UserPipelines(userID string) *Collection[types.PipelineConfig] {
	return &Collection[types.PipelineConfig]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionPipelines),
		ToFirestore:   PipelineToFirestore,
		FromFirestore: FirestoreToPipeline,
	}
}

// UserPendingInputs are sub-collections of Users: users/{uid}/pending_inputs/{stable_id}
func (c *Client) UserPendingInputs(userID string) *Collection[types.PendingInput] {
	return &Collection[types.PendingInput]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionPendingInputs),
		ToFirestore:   PendingInputToFirestore,
		FromFirestore: FirestoreToPendingInput,
	}
}

func (c *Client) Executions() *Collection[types.ExecutionRecord] {
	return &Collection[types.ExecutionRecord]{
		Ref:           c.fs.Collection(shared.CollectionExecutions),
		ToFirestore:   ExecutionToFirestore,
		FromFirestore: FirestoreToExecution,
	}
}
