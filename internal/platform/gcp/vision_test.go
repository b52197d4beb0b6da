package gcp

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"

	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type fakeAnnotator struct {
	fn func(req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	return f.fn(req)
}

func TestOCRImageSendsLanguageHint(t *testing.T) {
	svc := newVisionService(logger.NewNop(), &fakeAnnotator{fn: func(req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		require.Len(t, req.Requests, 1)
		assert.Equal(t, []string{"en"}, req.Requests[0].ImageContext.GetLanguageHints())
		assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, req.Requests[0].Features[0].Type)
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "1. Scanned question\nA. one"},
		}}}, nil
	}}, nil, VisionConfig{})

	text, err := svc.OCRImage(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "eng")
	require.NoError(t, err)
	assert.Equal(t, "1. Scanned question\nA. one", text)
}

func TestOCRImageSurfacesAnnotateError(t *testing.T) {
	svc := newVisionService(logger.NewNop(), &fakeAnnotator{fn: func(*visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
			Error: &statuspb.Status{Message: "bad image"},
		}}}, nil
	}}, nil, VisionConfig{})

	_, err := svc.OCRImage(context.Background(), []byte{1}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
}

func TestOCRImageEmptyInputSkipsCall(t *testing.T) {
	svc := newVisionService(logger.NewNop(), &fakeAnnotator{fn: func(*visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return nil, errors.New("should not be called")
	}}, nil, VisionConfig{})

	text, err := svc.OCRImage(context.Background(), nil, "eng")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClientOptions(t *testing.T) {
	assert.Nil(t, ClientOptions(""))
	assert.Len(t, ClientOptions(`{"type":"service_account"}`), 1)
	assert.Len(t, ClientOptions("/etc/creds.json"), 1)
}
