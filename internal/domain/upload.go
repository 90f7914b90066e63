package domain

// UploadKind names the slot an uploaded image fills.
type UploadKind string

const (
	UploadIDFront UploadKind = "id_front"
	UploadIDBack  UploadKind = "id_back"
	UploadSelfie  UploadKind = "selfie"
	UploadPOA     UploadKind = "poa" // proof of address, optional
)

// UploadRule is the handling rule attached to each upload kind.
type UploadRule struct {
	// Steps lists the wizard steps on which the kind may be uploaded.
	Steps []int
	// Required marks kinds that must be present before the owning step can advance
	// and before submission.
	Required bool
	// SquareJPEG kinds are normalised to a square JPEG before upload.
	SquareJPEG bool
}

var acceptedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var uploadRules = map[UploadKind]UploadRule{
	UploadIDFront: {Steps: []int{StepIDUpload}, Required: true},
	UploadIDBack:  {Steps: []int{StepIDUpload}, Required: true},
	UploadSelfie:  {Steps: []int{StepSelfie}, Required: true, SquareJPEG: true},
	UploadPOA:     {Steps: []int{StepIDUpload, StepSelfie, StepReview}},
}

// UploadKinds lists every kind in a stable order.
var UploadKinds = []UploadKind{UploadIDFront, UploadIDBack, UploadSelfie, UploadPOA}

// ParseUploadKind maps the wire name to a kind.
func ParseUploadKind(s string) (UploadKind, bool) {
	k := UploadKind(s)
	_, ok := uploadRules[k]
	return k, ok
}

// Rule returns the handling rule for k.
func (k UploadKind) Rule() UploadRule { return uploadRules[k] }

// AllowedOn reports whether k may be uploaded while step is displayed.
func (k UploadKind) AllowedOn(step int) bool {
	for _, s := range uploadRules[k].Steps {
		if s == step {
			return true
		}
	}
	return false
}

// AcceptsMediaType reports whether the exact media type is one of image/jpeg, image/jpg
// or image/png. The server remains the authority on acceptance.
func AcceptsMediaType(mediaType string) bool {
	return acceptedMediaTypes[mediaType]
}

// Previews maps upload kinds to the URL of the stored image.
type Previews map[UploadKind]string

// Has reports whether every listed kind has a non-empty preview.
func (p Previews) Has(kinds ...UploadKind) bool {
	for _, k := range kinds {
		if p[k] == "" {
			return false
		}
	}
	return true
}

// Missing returns the required kinds without a preview.
func (p Previews) Missing() []UploadKind {
	var out []UploadKind
	for _, k := range UploadKinds {
		if uploadRules[k].Required && p[k] == "" {
			out = append(out, k)
		}
	}
	return out
}
