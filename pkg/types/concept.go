package types

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

// TimestampLayout is the ISO-8601 form used on the wire: UTC with
// millisecond precision, e.g. 2024-05-01T09:30:00.250Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultTypeID types concepts whose caller did not name a type, including
// guessed concepts synthesized for unknown query ids.
const DefaultTypeID = "default-type-id"

// PeerIDProperty records the external identifier an owner was registered
// under.
const PeerIDProperty = "peerId"

// clock returns the current instant at wire precision. Tests override it.
var clock = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Alignment is a directed, weighted edge to another concept. Factor is
// conventionally in [0,1]; nothing enforces that or that factors sum to 1.
type Alignment struct {
	ConceptID string  `json:"conceptId" yaml:"conceptId"`
	Factor    float64 `json:"factor" yaml:"factor"`
}

// Concept is a typed, identified record with free-form properties and
// weighted edges. TypeID points at another Concept acting as its type.
//
// ID must not change after construction.
type Concept struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	TypeID          string            `yaml:"typeId"`
	Owners          []Alignment       `yaml:"owners"`
	AlignedConcepts []Alignment       `yaml:"alignedConcepts"`
	Properties      map[string]string `yaml:"properties"`
	CreatedAt       time.Time         `yaml:"createdAt"`
	UpdatedAt       time.Time         `yaml:"updatedAt"`
}

// NewConcept returns a concept with a fresh UUID v7 id and both timestamps
// set to now.
func NewConcept(name, description, typeID string) *Concept {
	return NewConceptWithID(newID(), name, description, typeID)
}

// NewConceptWithID is NewConcept with a caller-chosen id, used to bind an
// owner concept to a network peer id.
func NewConceptWithID(id, name, description, typeID string) *Concept {
	now := clock()
	return &Concept{
		ID:              id,
		Name:            name,
		Description:     description,
		TypeID:          typeID,
		Owners:          []Alignment{},
		AlignedConcepts: []Alignment{},
		Properties:      map[string]string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// AddOwner appends an ownership stake held by ownerID.
func (c *Concept) AddOwner(ownerID string, factor float64) {
	c.Owners = append(c.Owners, Alignment{ConceptID: ownerID, Factor: factor})
	c.touch()
}

// AddAlignedConcept appends an alignment edge towards conceptID.
func (c *Concept) AddAlignedConcept(conceptID string, factor float64) {
	c.AlignedConcepts = append(c.AlignedConcepts, Alignment{ConceptID: conceptID, Factor: factor})
	c.touch()
}

// SetProperty upserts a property value.
func (c *Concept) SetProperty(key, value string) {
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	c.Properties[key] = value
	c.touch()
}

// Property returns a property value and whether it is set.
func (c *Concept) Property(key string) (string, bool) {
	v, ok := c.Properties[key]
	return v, ok
}

// Update overwrites the non-empty arguments and refreshes UpdatedAt.
// An empty string leaves the field unchanged.
func (c *Concept) Update(name, description, typeID string) {
	if name != "" {
		c.Name = name
	}
	if description != "" {
		c.Description = description
	}
	if typeID != "" {
		c.TypeID = typeID
	}
	c.touch()
}

// AlignmentTo returns the first aligned-concept edge pointing at conceptID.
func (c *Concept) AlignmentTo(conceptID string) (Alignment, bool) {
	for _, a := range c.AlignedConcepts {
		if a.ConceptID == conceptID {
			return a, true
		}
	}
	return Alignment{}, false
}

func (c *Concept) touch() {
	c.UpdatedAt = clock()
}

// Compare orders concepts by name, type id, description, creation time in
// milliseconds, then id. Strings compare byte-wise so the order does not
// depend on locale.
func (c *Concept) Compare(other *Concept) int {
	if n := strings.Compare(c.Name, other.Name); n != 0 {
		return n
	}
	if n := strings.Compare(c.TypeID, other.TypeID); n != 0 {
		return n
	}
	if n := strings.Compare(c.Description, other.Description); n != 0 {
		return n
	}
	if n := cmp.Compare(c.CreatedAt.UnixMilli(), other.CreatedAt.UnixMilli()); n != 0 {
		return n
	}
	return strings.Compare(c.ID, other.ID)
}

// SortConcepts sorts in place by Compare. The sort is stable.
func SortConcepts(concepts []*Concept) {
	slices.SortStableFunc(concepts, func(a, b *Concept) int {
		return a.Compare(b)
	})
}

// conceptJSON is the wire shape. Pointer fields detect absent keys.
type conceptJSON struct {
	ID              *string           `json:"id"`
	Name            *string           `json:"name"`
	Description     string            `json:"description"`
	TypeID          string            `json:"typeId"`
	Owners          []Alignment       `json:"owners"`
	AlignedConcepts []Alignment       `json:"alignedConcepts"`
	Properties      map[string]string `json:"properties"`
	CreatedAt       *string           `json:"createdAt"`
	UpdatedAt       *string           `json:"updatedAt"`
}

// MarshalJSON emits the wire format. Nil collections are written as empty
// ones so readers never see null.
func (c Concept) MarshalJSON() ([]byte, error) {
	owners := c.Owners
	if owners == nil {
		owners = []Alignment{}
	}
	aligned := c.AlignedConcepts
	if aligned == nil {
		aligned = []Alignment{}
	}
	props := c.Properties
	if props == nil {
		props = map[string]string{}
	}
	created := c.CreatedAt.UTC().Format(TimestampLayout)
	updated := c.UpdatedAt.UTC().Format(TimestampLayout)
	return json.Marshal(conceptJSON{
		ID:              &c.ID,
		Name:            &c.Name,
		Description:     c.Description,
		TypeID:          c.TypeID,
		Owners:          owners,
		AlignedConcepts: aligned,
		Properties:      props,
		CreatedAt:       &created,
		UpdatedAt:       &updated,
	})
}

// UnmarshalJSON parses the wire format. Missing id, name or timestamps, and
// timestamps that do not parse, fail with ErrDeserialization.
func (c *Concept) UnmarshalJSON(data []byte) error {
	var w conceptJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Mark(errors.Wrap(err, "decode concept"), ErrDeserialization)
	}
	switch {
	case w.ID == nil || *w.ID == "":
		return errors.Wrap(ErrDeserialization, "concept id missing")
	case w.Name == nil:
		return errors.Wrap(ErrDeserialization, "concept name missing")
	case w.CreatedAt == nil:
		return errors.Wrap(ErrDeserialization, "concept createdAt missing")
	case w.UpdatedAt == nil:
		return errors.Wrap(ErrDeserialization, "concept updatedAt missing")
	}
	created, err := parseTimestamp(*w.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "createdAt")
	}
	updated, err := parseTimestamp(*w.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "updatedAt")
	}

	*c = Concept{
		ID:              *w.ID,
		Name:            *w.Name,
		Description:     w.Description,
		TypeID:          w.TypeID,
		Owners:          w.Owners,
		AlignedConcepts: w.AlignedConcepts,
		Properties:      w.Properties,
		CreatedAt:       created,
		UpdatedAt:       updated,
	}
	if c.Owners == nil {
		c.Owners = []Alignment{}
	}
	if c.AlignedConcepts == nil {
		c.AlignedConcepts = []Alignment{}
	}
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Mark(errors.Wrapf(err, "parse timestamp %q", s), ErrDeserialization)
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// ToJSON serializes the concept to its wire format.
func (c *Concept) ToJSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrapf(err, "encode concept %s", c.ID)
	}
	return string(b), nil
}

// FromJSON parses a concept from its wire format.
func FromJSON(data string) (*Concept, error) {
	var c Concept
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		// Syntax errors are reported before UnmarshalJSON runs.
		return nil, errors.Mark(err, ErrDeserialization)
	}
	return &c, nil
}
