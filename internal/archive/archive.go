// Package archive writes transcripts of closed conversations to object storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/model"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

type Transcript struct {
	ConversationID      string        `json:"conversationId"`
	CustomerUserID      string        `json:"customerUserId"`
	CustomerDisplayName string        `json:"customerDisplayName"`
	CreatedAt           time.Time     `json:"createdAt"`
	ClosedAt            *time.Time    `json:"closedAt,omitempty"`
	Messages            []dto.Message `json:"messages"`
}

func BuildTranscript(cv *model.Conversation, msgs []model.Message) Transcript {
	return Transcript{
		ConversationID:      cv.ID,
		CustomerUserID:      cv.CustomerUserID,
		CustomerDisplayName: cv.CustomerDisplayName,
		CreatedAt:           cv.CreatedAt,
		ClosedAt:            cv.ClosedAt,
		Messages:            dto.NewMessages(msgs),
	}
}

// ObjectPath is where a conversation's transcript is stored in the bucket.
func ObjectPath(cv *model.Conversation) string {
	return fmt.Sprintf("transcripts/%s/%s.json", url.PathEscape(cv.CustomerUserID), cv.ID)
}

// Nop discards transcripts. Used when no bucket is configured.
type Nop struct{}

func (Nop) Archive(context.Context, *model.Conversation, []model.Message) error { return nil }

type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver uses credentialsFile when set and application default credentials
// otherwise. Missing default credentials fail here rather than on the first close.
func NewGCSArchiver(ctx context.Context, bucket, credentialsFile string) (*GCSArchiver, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, cv *model.Conversation, msgs []model.Message) error {
	data, err := json.MarshalIndent(BuildTranscript(cv, msgs), "", "  ")
	if err != nil {
		return err
	}
	w := a.client.Bucket(a.bucket).Object(ObjectPath(cv)).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": uuid.NewString(),
		"conversationId":                cv.ID,
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
