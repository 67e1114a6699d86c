package replicate

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	replicatego "github.com/replicate/replicate-go"
)

var modelPattern = regexp.MustCompile(`^[^/]+/[^/:]+(?::[^/:]+)?$`)

// Client runs image-to-image predictions on a single configured model.
type Client struct {
	r8    *replicatego.Client
	model string
}

func NewClient(token, model string) (*Client, error) {
	if token == "" {
		return nil, errors.New("replicate: missing api token")
	}
	if !modelPattern.MatchString(model) {
		return nil, fmt.Errorf("replicate: invalid model %q, expected owner/model or owner/model:version", model)
	}
	r8, err := replicatego.NewClient(replicatego.WithToken(token))
	if err != nil {
		return nil, fmt.Errorf("replicate: %w", err)
	}
	return &Client{r8: r8, model: model}, nil
}

// Generate runs the model on inputURL and returns the URL of the result.
func (c *Client) Generate(ctx context.Context, prompt, inputURL string) (string, error) {
	output, err := c.r8.Run(ctx, c.model, replicatego.PredictionInput{
		"prompt":        prompt,
		"image_input":   []string{inputURL},
		"output_format": "png",
	}, nil)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", c.model, err)
	}
	return OutputURL(output)
}
