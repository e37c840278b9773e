package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

const defaultMaxConcurrentUploads = 2

// VideoService manages uploaded videos
type VideoService struct {
	c             *Client
	uploads       bulkhead.Bulkhead[*domain.Video]
	uploadTimeout time.Duration
}

func newVideoService(c *Client, maxUploads int, uploadTimeout time.Duration) *VideoService {
	if maxUploads <= 0 {
		maxUploads = defaultMaxConcurrentUploads
	}
	return &VideoService{
		c:             c,
		uploadTimeout: uploadTimeout,
		uploads: bulkhead.New[*domain.Video](bulkhead.Config{
			MaxConcurrent: maxUploads,
			MaxQueue:      maxUploads * 2,
			QueueTimeout:  30 * time.Second,
		}),
	}
}

// VideoUpload is a new video and its metadata
type VideoUpload struct {
	Title       string
	Description string
	Category    domain.VideoCategory
	Filename    string
	Content     io.Reader
}

// VideoQuery filters a video listing. Zero values are omitted.
type VideoQuery struct {
	Page     int
	Limit    int
	Category domain.VideoCategory
	Search   string
}

func (q VideoQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// Upload sends the video as multipart form data. Uploads beyond the
// concurrency limit queue, and fail once the queue is full.
func (s *VideoService) Upload(ctx context.Context, upload VideoUpload) (*domain.Video, error) {
	if strings.TrimSpace(upload.Title) == "" || upload.Content == nil {
		return nil, ErrInvalidUpload
	}
	return s.uploads.Execute(ctx, func(ctx context.Context) (*domain.Video, error) {
		return s.upload(ctx, upload)
	})
}

func (s *VideoService) upload(ctx context.Context, upload VideoUpload) (*domain.Video, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	filename := upload.Filename
	if filename == "" {
		filename = "video"
	}
	part, err := mw.CreateFormFile("video", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, fmt.Errorf("read video content: %w", err)
	}
	fields := [][2]string{
		{"title", upload.Title},
		{"description", upload.Description},
		{"category", string(upload.Category)},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/videos/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		timeout:     s.uploadTimeout,
	})
	if err != nil {
		return nil, err
	}

	var video domain.Video
	if err := s.c.decode(resp, &video, "video"); err != nil {
		return nil, err
	}
	return &video, nil
}

// List returns one page of videos
func (s *VideoService) List(ctx context.Context, q VideoQuery) (*domain.VideoPage, error) {
	resp, err := s.c.get(ctx, "/videos", q.values())
	if err != nil {
		return nil, err
	}

	var page domain.VideoPage
	if err := s.c.decode(resp, &page); err != nil {
		return nil, err
	}
	page.Normalize()
	return &page, nil
}

// Get fetches a single video
func (s *VideoService) Get(ctx context.Context, id string) (*domain.Video, error) {
	resp, err := s.c.get(ctx, "/videos/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var video domain.Video
	if err := s.c.decode(resp, &video, "video"); err != nil {
		return nil, err
	}
	return &video, nil
}

// Update changes video metadata
func (s *VideoService) Update(ctx context.Context, id string, update domain.VideoUpdate) (*domain.Video, error) {
	resp, err := s.c.sendJSON(ctx, http.MethodPut, "/videos/"+url.PathEscape(id), update)
	if err != nil {
		return nil, err
	}

	var video domain.Video
	if err := s.c.decode(resp, &video, "video"); err != nil {
		return nil, err
	}
	return &video, nil
}

// Delete removes a video
func (s *VideoService) Delete(ctx context.Context, id string) error {
	_, err := s.c.do(ctx, request{method: http.MethodDelete, path: "/videos/" + url.PathEscape(id)})
	return err
}

// StreamURL returns the playback address of a video. The token is never
// embedded; use StreamRequest for an authorized request.
func (s *VideoService) StreamURL(id string) string {
	return s.c.baseURL + "/videos/stream/" + url.PathEscape(id)
}

// StreamRequest builds an authorized GET for the video stream
func (s *VideoService) StreamRequest(ctx context.Context, id string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.StreamURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.c.authorize(req)
	return req, nil
}
