package domain

// CatImage is one result of the image provider search.
type CatImage struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	MimeType   string  `json:"mime_type,omitempty"`
	Breeds     []Breed `json:"breeds"`
	Categories []any   `json:"categories,omitempty"`
}

// Breed describes a cat breed attached to an image.
type Breed struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Weight     any    `json:"weight,omitempty"`
	Height     any    `json:"height,omitempty"`
	LifeSpan   string `json:"life_span,omitempty"`
	BreedGroup string `json:"breed_group,omitempty"`
}

// ImageURLs extracts the URLs of the given images.
func ImageURLs(images []CatImage) []string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}
