package transform

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/toonface/internal/config"
)

const (
	cartoonifyURL = "http://ai.test/cartoonify"
	segmentURL    = "http://ai.test/segment-head"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c := NewClient(config.TransformConfig{
		CartoonifyURL:  cartoonifyURL,
		SegmentHeadURL: segmentURL,
		Timeout:        5 * time.Second,
	})

	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return c
}

func TestCartoonize_Success(t *testing.T) {
	c := newTestClient(t)

	var gotBody map[string]string
	httpmock.RegisterResponder(http.MethodPost, cartoonifyURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&gotBody))
			return httpmock.NewBytesResponse(http.StatusOK, []byte("png-bytes")), nil
		})

	data, err := c.Cartoonize(context.Background(), []byte("image"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	// The image travels as a data URI carrying its mime type.
	assert.Contains(t, gotBody["input_image"], "data:image/jpeg;base64,")
}

func TestSegmentHead_Success(t *testing.T) {
	c := newTestClient(t)

	var gotBody map[string]string
	httpmock.RegisterResponder(http.MethodPost, segmentURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&gotBody))
			return httpmock.NewBytesResponse(http.StatusOK, []byte("jpeg-bytes")), nil
		})

	data, err := c.SegmentHead(context.Background(), "http://host/uploads/temp/a.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, "http://host/uploads/temp/a.jpg", gotBody["image_url"])
}

func TestCartoonize_EmptyBody(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, cartoonifyURL,
		httpmock.NewBytesResponder(http.StatusOK, nil))

	_, err := c.Cartoonize(context.Background(), []byte("image"), "image/png")

	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestCartoonize_UpstreamMessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json_detail", http.StatusUnprocessableEntity, `{"detail": "no face in image"}`, "no face in image"},
		{"json_error", http.StatusBadRequest, `{"error": "bad input"}`, "bad input"},
		{"json_message", http.StatusInternalServerError, `{"message": "model crashed"}`, "model crashed"},
		{"raw_body", http.StatusBadGateway, `upstream timeout`, "upstream timeout"},
		{"empty_body", http.StatusServiceUnavailable, ``, "503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			httpmock.RegisterResponder(http.MethodPost, cartoonifyURL,
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.Cartoonize(context.Background(), []byte("image"), "image/png")

			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tt.status, upstream.Status)
			assert.Equal(t, tt.wantMsg, upstream.Message)
			assert.Equal(t, "AI server error: "+tt.wantMsg, upstream.Error())
		})
	}
}

func TestSegmentHead_ConnectionFailure(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, segmentURL,
		httpmock.NewErrorResponder(assert.AnError))

	_, err := c.SegmentHead(context.Background(), "http://host/uploads/temp/a.jpg")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 0, upstream.Status)
	assert.Contains(t, upstream.Message, assert.AnError.Error())
}
