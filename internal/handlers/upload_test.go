package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/streetscan-api/internal/model"
)

type formPart struct {
	disposition string
	contentType string
	content     []byte
}

func rawMultipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range parts {
		header := textproto.MIMEHeader{"Content-Disposition": {p.disposition}}
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestPredictFileParts(t *testing.T) {
	png := testImage(t)

	tests := []struct {
		name       string
		parts      []formPart
		wantStatus int
		wantError  string
	}{
		{
			name:       "plain text field named file",
			parts:      []formPart{{disposition: `form-data; name="file"`, content: []byte("hydrant.jpg")}},
			wantStatus: http.StatusBadRequest,
			wantError:  "파일이 없습니다.",
		},
		{
			name:       "file part with empty filename",
			parts:      []formPart{{disposition: `form-data; name="file"; filename=""`, content: nil}},
			wantStatus: http.StatusBadRequest,
			wantError:  "파일을 선택해주세요.",
		},
		{
			name: "typed part without filename",
			parts: []formPart{{
				disposition: `form-data; name="file"`,
				contentType: "application/octet-stream",
			}},
			wantStatus: http.StatusBadRequest,
			wantError:  "파일을 선택해주세요.",
		},
		{
			name: "text field before the real file",
			parts: []formPart{
				{disposition: `form-data; name="file"`, content: []byte("caption")},
				{disposition: `form-data; name="file"; filename="sign.png"`, contentType: "image/png", content: png},
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockPredictor)
			p.On("Ready").Return(true)
			p.On("Infer", mock.Anything, mock.Anything).Return(probsWith(2, 0.8), nil)

			w := serve(setupRouter(p), rawMultipartRequest(t, tt.parts...))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
				p.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything)
				return
			}
			assert.Equal(t, float64(2), decodeBody(t, w)["class_id"])
		})
	}
}

func inferenceSamples(t *testing.T) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "streetscan_inference_duration_seconds" {
			return family.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func TestInferenceLatencyCountsForwardPassesOnly(t *testing.T) {
	t.Run("undecodable upload is not observed", func(t *testing.T) {
		p := new(mockPredictor)
		p.On("Ready").Return(true)
		before := inferenceSamples(t)

		w := serve(setupRouter(p), multipartRequest(t, "file", "notes.txt", []byte("plain text")))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, before, inferenceSamples(t))
	})

	t.Run("failed inference is not observed", func(t *testing.T) {
		p := new(mockPredictor)
		p.On("Ready").Return(true)
		p.On("Infer", mock.Anything, mock.Anything).Return(nil, errors.New("inference failed"))
		before := inferenceSamples(t)

		serve(setupRouter(p), multipartRequest(t, "file", "sign.png", testImage(t)))

		assert.Equal(t, before, inferenceSamples(t))
	})

	t.Run("successful inference is observed once", func(t *testing.T) {
		p := new(mockPredictor)
		p.On("Ready").Return(true)
		p.On("Infer", mock.Anything, mock.Anything).Return(probsWith(4, 0.3), nil)
		before := inferenceSamples(t)

		w := serve(setupRouter(p), multipartRequest(t, "file", "sign.png", testImage(t)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, before+1, inferenceSamples(t))
	})
}

var _ model.Predictor = (*mockPredictor)(nil)
