package models

import "testing"

func TestPageState_BestFileInput(t *testing.T) {
	tests := []struct {
		name   string
		inputs []FileInput
		want   int
	}{
		{"no inputs", nil, -1},
		{"single unknown", []FileInput{{Index: 0, Score: 1}}, 0},
		{"image input wins", []FileInput{{Index: 0, Score: 0}, {Index: 1, Score: 1}, {Index: 2, Score: 2}}, 2},
		{"first of equal scores", []FileInput{{Index: 3, Score: 1}, {Index: 4, Score: 1}}, 3},
		{"documents only", []FileInput{{Index: 5, Score: 0}}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &PageState{FileInputs: tt.inputs}
			if got := state.BestFileInput(); got != tt.want {
				t.Errorf("Expected input %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPageState_OnImagesTab(t *testing.T) {
	state := &PageState{FileInputs: []FileInput{{Index: 0, Accept: ".pdf", Score: 0}}}
	if state.OnImagesTab() {
		t.Error("Expected documents-only page not to count as the images tab")
	}

	state.FileInputs = append(state.FileInputs, FileInput{Index: 1, Accept: "image/png", Score: 2})
	if !state.OnImagesTab() {
		t.Error("Expected an image input to mark the images tab")
	}
}

func TestPageState_Ready(t *testing.T) {
	if (&PageState{}).Ready() {
		t.Error("Expected empty page not to be ready")
	}
	if !(&PageState{HasDownloadButton: true}).Ready() {
		t.Error("Expected download button to mark the result ready")
	}
	if !(&PageState{TranslatedImageSrc: "blob:https://translate.google.com/abc"}).Ready() {
		t.Error("Expected translated image src to mark the result ready")
	}
}
