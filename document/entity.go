package document

import "maps"

// EntityKey addresses an entity in a document's entity table. Zero means
// no entity.
type EntityKey int

// Immutable is the mutability of image entities.
const Immutable = "IMMUTABLE"

// EntityImage is the entity type of embedded images; their data holds the
// image URL under "src".
const EntityImage = "IMAGE"

// Entity is an out-of-band record attached to an atomic block.
type Entity struct {
	Type       string
	Mutability string
	Data       map[string]any
}

// NewImage returns an immutable image entity pointing at src.
func NewImage(src string) Entity {
	return Entity{Type: EntityImage, Mutability: Immutable, Data: map[string]any{"src": src}}
}

// Src returns the image URL of an image entity.
func (e Entity) Src() string {
	s, _ := e.Data["src"].(string)
	return s
}

func (e Entity) clone() Entity {
	e.Data = maps.Clone(e.Data)
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return e
}
