package models

// SentinelID marks an association row that has not been resolved to a real
// reference yet.
const SentinelID int64 = -1

// Ref is a flat {id, name} lookup value. The type parameter only tags which
// lookup table the value belongs to, so a Vendor cannot be passed where a
// Department is expected.
type Ref[T any] struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (r Ref[T]) Valid() bool {
	return r.ID != SentinelID && r.Name != ""
}

type (
	departmentTag         struct{}
	divisionTag           struct{}
	vendorTag             struct{}
	glAccountTag          struct{}
	softwareDependencyTag struct{}
	hardwareDependencyTag struct{}
)

type (
	Department         = Ref[departmentTag]
	Division           = Ref[divisionTag]
	Vendor             = Ref[vendorTag]
	GLAccount          = Ref[glAccountTag]
	SoftwareDependency = Ref[softwareDependencyTag]
	HardwareDependency = Ref[hardwareDependencyTag]
)

// ValidRefs returns the entries of refs that participate in persistence.
func ValidRefs[T any](refs []Ref[T]) []Ref[T] {
	out := make([]Ref[T], 0, len(refs))
	for _, r := range refs {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// RefNames returns the names of refs in order.
func RefNames[T any](refs []Ref[T]) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}

// HasRef reports whether refs contains an entry with the given id.
func HasRef[T any](refs []Ref[T], id int64) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// FindRefByName looks up name (case-sensitive) in a lookup table. Unknown
// names come back as a sentinel entry so callers can keep the row in a draft.
func FindRefByName[T any](table []Ref[T], name string) Ref[T] {
	for _, r := range table {
		if r.Name == name {
			return r
		}
	}
	return Ref[T]{ID: SentinelID, Name: name}
}
