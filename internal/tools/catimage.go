package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/s0ngyang/catai/internal/domain"
)

// CatImageToolName is the function name the assistant uses to request cat pictures.
const CatImageToolName = "getCatImage"

const catImageSchema = `{
	"type": "object",
	"properties": {
		"count": {"type": "integer", "minimum": 1, "description": "How many images to fetch"},
		"breed": {"type": "string", "description": "Optional breed id, e.g. beng"}
	},
	"additionalProperties": false
}`

// ImageFetcher retrieves images from the image provider.
type ImageFetcher interface {
	FetchImages(ctx context.Context, count int, breed string) ([]domain.CatImage, error)
}

// ImageSink receives the URLs of the latest fetched images for display.
type ImageSink interface {
	SetImages(urls []string)
}

// CatImageArgs are the arguments of getCatImage.
type CatImageArgs struct {
	Count int    `json:"count"`
	Breed string `json:"breed,omitempty"`
}

// CatImageResult is the tool output reported back to the assistant.
type CatImageResult struct {
	Count  int             `json:"count"`
	Images []CatImageBrief `json:"images"`
}

// CatImageBrief is the part of an image the assistant gets to see.
type CatImageBrief struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// CatImageDefinition describes getCatImage to the assistant.
func CatImageDefinition() Definition {
	return Definition{
		Name:        CatImageToolName,
		Description: "Fetch random cat pictures and show them to the user.",
		Parameters:  json.RawMessage(catImageSchema),
	}
}

// NewCatImageExecutor returns the getCatImage executor. The fetched URLs are pushed to
// sink independently of the returned output.
func NewCatImageExecutor(fetcher ImageFetcher, sink ImageSink, maxImages int) ExecutorFunc {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args CatImageArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if args.Count <= 0 {
			args.Count = 1
		}
		if maxImages > 0 && args.Count > maxImages {
			args.Count = maxImages
		}

		images, err := fetcher.FetchImages(ctx, args.Count, args.Breed)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch cat images: %w", err)
		}
		if len(images) > args.Count {
			images = images[:args.Count]
		}

		if sink != nil {
			sink.SetImages(domain.ImageURLs(images))
		}

		result := CatImageResult{Count: len(images), Images: make([]CatImageBrief, 0, len(images))}
		for _, img := range images {
			result.Images = append(result.Images, CatImageBrief{
				ID:     img.ID,
				URL:    img.URL,
				Width:  img.Width,
				Height: img.Height,
			})
		}
		out, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return out, nil
	}
}

// RegisterCatImage registers getCatImage on r.
func RegisterCatImage(r *Registry, fetcher ImageFetcher, sink ImageSink, maxImages int) error {
	return r.Register(CatImageDefinition(), NewCatImageExecutor(fetcher, sink, maxImages))
}
