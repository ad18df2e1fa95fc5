package parser

// Candidate is a clickable element on the translation page: every element matching
// Selector whose text or aria-label contains Text (case-insensitive, empty matches all).
type Candidate struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

// ConsentButtons are the cookie-consent buttons shown to new sessions in the EU.
var ConsentButtons = []Candidate{
	{Selector: "button", Text: "Accept all"},
	{Selector: "button", Text: "I agree"},
	{Selector: "button", Text: "Agree"},
	{Selector: "#introAgreeButton"},
	{Selector: "button[aria-label='Accept all']"},
	{Selector: "button", Text: "Accept"},
}

// ImagesTab are the controls that switch the page to image translation.
var ImagesTab = []Candidate{
	{Selector: "[role=tab]", Text: "Images"},
	{Selector: "button", Text: "Image translation"},
	{Selector: "button[aria-label='Image translation']"},
	{Selector: "button", Text: "Images"},
}

// FileInputSelector matches the upload inputs of every translation mode.
const FileInputSelector = "input[type=file]"

// UploadMarker is set on the chosen file input so it can be addressed by a plain selector.
const UploadMarker = "data-imgtr-upload"

// translationErrors are messages the page shows instead of a result.
var translationErrors = []string{
	"Can't detect text",
	"Cannot detect text",
	"This language may not be supported",
}

var (
	imageAcceptTokens    = []string{"image", ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif"}
	documentAcceptTokens = []string{".pdf", ".pptx", ".docx", ".xlsx", "application/pdf"}
)
