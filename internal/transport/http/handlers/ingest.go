package handlers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"brokle/internal/infrastructure/blobstore"
	"brokle/internal/infrastructure/queue"
	"brokle/internal/transport/http/middleware"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/response"
)

// maxDecompressedBody bounds a gzip-inflated OTLP export body so a small
// compressed payload can't be used to exhaust memory (§6.1, §8).
const maxDecompressedBody = 64 << 20

// IngestHandler receives OTLP/HTTP protobuf trace exports, persists the
// decoded request as durable blob storage, and enqueues a reference for
// asynchronous transformation (§4.5, §4.6).
type IngestHandler struct {
	blobs          *blobstore.Client
	producer       *queue.Producer
	maxRequestSize int64
	logger         *logrus.Logger
}

func NewIngestHandler(blobs *blobstore.Client, producer *queue.Producer, maxRequestSize int64, logger *logrus.Logger) *IngestHandler {
	return &IngestHandler{blobs: blobs, producer: producer, maxRequestSize: maxRequestSize, logger: logger}
}

// Export handles POST /public/traces. The client's write is durable the
// moment the blob store Put succeeds; queue publication is best-effort and
// never fails the response (§4.5, §4.6, §7).
// @Summary Ingest an OTLP trace export
// @Description Accepts a gzip+protobuf OTLP ExportTraceServiceRequest, persists it to blob storage, and enqueues it for async transform
// @Tags Ingestion
// @Accept application/x-protobuf
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /public/traces [post]
func (h *IngestHandler) Export(c *gin.Context) {
	projectID := middleware.IngestProjectID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestSize)
	body, err := readBody(c.Request)
	if err != nil {
		if isBodyTooLarge(err) {
			response.BadRequest(c, "request body exceeds maximum size", fmt.Sprintf("limit is %d bytes", h.maxRequestSize))
			return
		}
		response.Error(c, err)
		return
	}
	if len(body) == 0 {
		response.BadRequest(c, "request body is empty", "")
		return
	}

	req := &coltracepb.ExportTraceServiceRequest{}
	if err := proto.Unmarshal(body, req); err != nil {
		response.BadRequest(c, "malformed OTLP export request", err.Error())
		return
	}

	payload, err := protojson.Marshal(req)
	if err != nil {
		response.Error(c, apperrors.WrapInternalError(err, "failed to encode export request"))
		return
	}

	key := blobstore.BuildEventKey(projectID.String(), time.Now())
	if err := h.blobs.Put(c.Request.Context(), key, payload, "application/json"); err != nil {
		response.Error(c, err)
		return
	}

	task := queue.IngestTask{ProjectID: projectID.String(), BlobKey: key}
	if _, err := h.producer.Publish(c.Request.Context(), task); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID.String(),
			"blob_key":   key,
		}).Error("failed to enqueue ingest task; blob is durable and awaits reconciliation")
	}

	response.Success(c, gin.H{"status": "ok", "fileKey": key})
}

// readBody reads the raw request body, transparently inflating it when the
// client sent Content-Encoding: gzip (§6.1).
func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	if !containsGzip(r.Header.Get("Content-Encoding")) {
		return io.ReadAll(r.Body)
	}

	gz, err := gzip.NewReader(r.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, err
		}
		return nil, apperrors.NewValidationError("invalid gzip-encoded body", err.Error())
	}
	defer gz.Close()

	content, err := io.ReadAll(io.LimitReader(gz, maxDecompressedBody+1))
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, err
		}
		return nil, apperrors.NewValidationError("failed to inflate gzip body", err.Error())
	}
	if len(content) > maxDecompressedBody {
		return nil, apperrors.NewValidationError("decompressed body exceeds limit", "")
	}
	return content, nil
}

// isBodyTooLarge reports whether err originated from an http.MaxBytesReader
// rejecting a body past the configured limit (§6.1, §8.2).
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func containsGzip(contentEncoding string) bool {
	for _, enc := range strings.Split(contentEncoding, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}
