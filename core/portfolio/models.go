package portfolio

import (
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/earnyourwings/wings/core"
)

// Item is an evidence artifact the user added to their portfolio.
type Item struct {
	ID              core.ID        `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	CompetencyAreas []string       `json:"competency_areas"`
	Tags            []string       `json:"tags"`
	FilePath        string         `json:"file_path,omitempty"`
	UploadDate      core.Timestamp `json:"upload_date"`
}

// Draft is the "add to portfolio" form. The zero value is the empty form.
type Draft struct {
	Title           string           `json:"title" validate:"required,max=200"`
	Description     string           `json:"description" validate:"required,max=5000"`
	CompetencyAreas []string         `json:"competency_areas"`
	Tags            []string         `json:"tags"`
	File            *core.FileHandle `json:"file,omitempty"`
}

// ToggleCompetency links the draft to area key, or unlinks it when already linked.
// Linked areas keep the order they were picked in.
func (d Draft) ToggleCompetency(key string) Draft {
	areas := slices.Clone(d.CompetencyAreas)
	if i := slices.Index(areas, key); i >= 0 {
		areas = slices.Delete(areas, i, i+1)
	} else {
		areas = append(areas, key)
	}
	if len(areas) == 0 {
		areas = nil
	}
	d.CompetencyAreas = areas
	return d
}

// SetTags replaces the tags with the comma separated list in raw.
func (d Draft) SetTags(raw string) Draft {
	d.Tags = core.SplitList(raw)
	if len(d.Tags) == 0 {
		d.Tags = nil
	}
	return d
}

// IsEmpty reports whether nothing was entered in the draft.
func (d Draft) IsEmpty() bool {
	return d.Title == "" && d.Description == "" && len(d.CompetencyAreas) == 0 && len(d.Tags) == 0 && d.File == nil
}

func (d *Draft) Validate(validate *validator.Validate) error {
	d.Title = core.CleanString(d.Title)
	d.Description = core.CleanString(d.Description)
	return validate.Struct(d)
}

// NewItem contains information needed to create a new portfolio Item.
type NewItem struct {
	Title           string
	Description     string
	CompetencyAreas []string
	Tags            []string
	File            *core.FileHandle
}

// Submit validates the draft and packages it for the backend.
func (d *Draft) Submit(validate *validator.Validate) (NewItem, error) {
	if err := d.Validate(validate); err != nil {
		return NewItem{}, err
	}
	return NewItem{
		Title:           d.Title,
		Description:     d.Description,
		CompetencyAreas: append([]string{}, d.CompetencyAreas...),
		Tags:            append([]string{}, d.Tags...),
		File:            d.File,
	}, nil
}
