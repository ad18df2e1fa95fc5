package models

// FileInput describes an <input type=file> found on the translation page.
type FileInput struct {
	Index  int
	Accept string
	Score  int // 2 = accepts images, 1 = unknown, 0 = documents only
}

// PageState is what the parser could read from one snapshot of the translation page.
type PageState struct {
	ErrorMessage       string
	HasDownloadButton  bool
	TranslatedImageSrc string
	FileInputs         []FileInput
	HasConsentDialog   bool
}

// BestFileInput returns the index of the input most likely to accept images, or -1.
func (s *PageState) BestFileInput() int {
	best, bestScore := -1, -1
	for _, in := range s.FileInputs {
		if in.Score > bestScore {
			best, bestScore = in.Index, in.Score
		}
	}
	return best
}

// OnImagesTab reports whether an image-capable upload input is present.
func (s *PageState) OnImagesTab() bool {
	for _, in := range s.FileInputs {
		if in.Score == 2 {
			return true
		}
	}
	return false
}

// Ready reports whether the translated output is visible.
func (s *PageState) Ready() bool {
	return s.HasDownloadButton || s.TranslatedImageSrc != ""
}
