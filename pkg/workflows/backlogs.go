package workflows

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

// BatchResult is what a batch ingestion run reports back to the chat.
type BatchResult struct {
	Status      string
	RowsWritten int
}

// BatchIngestion runs the long-running Drive-to-Sheet backlog pipeline.
// Implemented outside this package; may be nil when the pipeline is not
// configured.
type BatchIngestion interface {
	Run(ctx context.Context, fileID string) (BatchResult, error)
}

// BacklogsWorkflow acknowledges backlog sheet updates and, when the event
// carries a file id, kicks off the ingestion pipeline and reports its
// outcome. Pipeline errors become a "status: failed" line; they never escape
// Process.
type BacklogsWorkflow struct {
	client    Messenger
	ingestion BatchIngestion
}

func NewBacklogsWorkflow(client Messenger, ingestion BatchIngestion) *BacklogsWorkflow {
	return &BacklogsWorkflow{client: client, ingestion: ingestion}
}

func (w *BacklogsWorkflow) Name() string { return "backlogs" }

func (w *BacklogsWorkflow) Supports(env *seatalk.Envelope) bool {
	return supportsByKeyword(env, w.Name())
}

func (w *BacklogsWorkflow) Process(env *seatalk.Envelope) error {
	fileID := strings.TrimSpace(eventString(env.Event, "drive_file_id"))
	if fileID == "" {
		fileID = strings.TrimSpace(eventString(env.Event, "file_id"))
	}

	message := buildSheetUpdateText(w.Name(), env)

	if fileID != "" && w.ingestion != nil {
		result, err := w.ingestion.Run(context.Background(), fileID)
		if err != nil {
			log.Printf("Backlogs pipeline failed for file_id=%s: %v", fileID, err)
			message = fmt.Sprintf("%s\nstatus: failed\nerror: %v", message, err)
		} else {
			message = fmt.Sprintf("%s\nstatus: %s\nrows_written: %d", message, result.Status, result.RowsWritten)
		}
	}

	return sendText(w.client, env, message)
}
