package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"

	"github.com/keeeal/quoth/server/common/log"
	"github.com/keeeal/quoth/server/quoth/domain"
)

// AttachmentMirror copies message attachments into object storage so quoted
// media survives deletion at the source. Images get a thumbnail alongside
// the original.
type AttachmentMirror struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

func NewAttachmentMirror(client *minio.Client, bucket string) *AttachmentMirror {
	return &AttachmentMirror{
		client: client,
		bucket: bucket,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *AttachmentMirror) Mirror(ctx context.Context, msg domain.Message) error {
	for _, att := range msg.Attachments {
		if err := m.mirrorOne(ctx, msg, att); err != nil {
			return fmt.Errorf("mirror %s: %w", att.Filename, err)
		}
	}
	return nil
}

func (m *AttachmentMirror) mirrorOne(ctx context.Context, msg domain.Message, att domain.Attachment) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("guild/%d/%d/%s", msg.GuildID, msg.ID, att.Filename)
	reader := bytes.NewReader(data)
	_, err = m.client.PutObject(ctx, m.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: att.ContentType,
	})
	if err != nil {
		return err
	}

	if strings.HasPrefix(att.ContentType, "image/") {
		if err := m.putThumbnail(ctx, key, data); err != nil {
			log.Warnf("thumbnail %s: %v", key, err)
		}
	}
	return nil
}

func (m *AttachmentMirror) putThumbnail(ctx context.Context, key string, data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	thumb := imaging.Thumbnail(img, 320, 320, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return err
	}

	ext := filepath.Ext(key)
	thumbKey := strings.TrimSuffix(key, ext) + "_thumb.jpg"
	reader := bytes.NewReader(buf.Bytes())
	_, err = m.client.PutObject(ctx, m.bucket, thumbKey, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	return err
}
