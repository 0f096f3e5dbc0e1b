package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/errs"
	"vitrina/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	imageBatchSize = 40
	imageWorkers   = 3
	uploadTimeout  = 30 * time.Second
)

// ImageService turns raw uploaded images into fixed-size thumbnails in the
// object store. Every thumbnail lands on an exact Width x Height canvas with
// the source scaled to fit and centered, so the storefront grid never reflows.
type ImageService interface {
	ProcessBatch(ctx context.Context, accountKey string, uploads [][]byte) *models.AssetBatchResult
	Thumbnail(data []byte) ([]byte, error)
}

type imageService struct {
	store   MinioService
	width   int
	height  int
	quality int
	logger  *zap.Logger
}

func NewImageService(store MinioService, cfg config.ThumbnailConfig, logger *zap.Logger) ImageService {
	return &imageService{
		store:   store,
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.Quality,
		logger:  logger,
	}
}

// ProcessBatch resizes and uploads every image, three at a time in batches of
// forty. A corrupt or unreadable image is skipped and reported; it never
// aborts the rest of the batch.
func (s *imageService) ProcessBatch(ctx context.Context, accountKey string, uploads [][]byte) *models.AssetBatchResult {
	outcomes := make([]models.AssetOutcome, len(uploads))

	for start := 0; start < len(uploads); start += imageBatchSize {
		end := start + imageBatchSize
		if end > len(uploads) {
			end = len(uploads)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, imageWorkers)
		for i := start; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[idx] = s.processOne(ctx, accountKey, idx, uploads[idx])
			}(i)
		}
		wg.Wait()
	}

	result := &models.AssetBatchResult{Total: len(uploads), Assets: outcomes}
	for _, o := range outcomes {
		if o.Status == "stored" {
			result.Stored++
			result.URLs = append(result.URLs, o.URL)
		} else {
			result.Failed++
		}
	}

	s.logger.Info("thumbnail batch finished",
		zap.String("account_key", accountKey),
		zap.Int("total", result.Total),
		zap.Int("stored", result.Stored),
		zap.Int("failed", result.Failed))
	return result
}

func (s *imageService) processOne(ctx context.Context, accountKey string, idx int, data []byte) models.AssetOutcome {
	thumb, err := s.Thumbnail(data)
	if err != nil {
		s.logger.Warn("image skipped",
			zap.String("account_key", accountKey),
			zap.Int("index", idx),
			zap.Error(err))
		return models.AssetOutcome{Index: idx, Status: "failed", Error: err.Error()}
	}

	objectName := fmt.Sprintf("tenants/%s/mini_%s.jpg", accountKey, strings.ReplaceAll(uuid.New().String(), "-", ""))

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	url, err := s.store.Upload(uploadCtx, objectName, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg")
	if err != nil {
		s.logger.Warn("thumbnail upload failed",
			zap.String("account_key", accountKey),
			zap.String("object", objectName),
			zap.Error(err))
		return models.AssetOutcome{Index: idx, Status: "failed", Error: err.Error()}
	}

	return models.AssetOutcome{Index: idx, Status: "stored", URL: url}
}

// Thumbnail decodes the image, scales it to fit within the configured canvas
// without cropping or distortion, centers it on a white background of exactly
// that size, and re-encodes as JPEG.
func (s *imageService) Thumbnail(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Validation("undecodable image: %v", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errs.Validation("image has zero dimension")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scaledW, scaledH := fitWithin(bounds.Dx(), bounds.Dy(), s.width, s.height)
	offX := (s.width - scaledW) / 2
	offY := (s.height - scaledH) / 2
	dst := image.Rect(offX, offY, offX+scaledW, offY+scaledH)
	xdraw.CatmullRom.Scale(canvas, dst, src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns the largest dimensions preserving aspect ratio that fit
// inside maxW x maxH. Upscales small sources; never returns a zero dimension.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	if outW > maxW {
		outW = maxW
	}
	if outH > maxH {
		outH = maxH
	}
	return outW, outH
}
