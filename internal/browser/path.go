package browser

import "strings"

// BreadcrumbItem is one folder on the way from the container root to the
// current folder.
type BreadcrumbItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Root is the synthetic first breadcrumb.
var Root = BreadcrumbItem{ID: "", Name: "Root"}

// Path is the breadcrumb trail. The first element is always Root.
type Path []BreadcrumbItem

// NewPath returns a path holding only Root.
func NewPath() Path {
	return Path{Root}
}

// Push returns the path extended by one folder. An empty id, or the id of
// the current folder, leaves the path as it is.
func (p Path) Push(id, name string) Path {
	if id == "" || (len(p) > 0 && p[len(p)-1].ID == id) {
		return p
	}
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, BreadcrumbItem{ID: id, Name: name})
}

// TruncateTo returns the prefix of p ending at the first element with id,
// inclusive. It reports false when id is not on the path.
func (p Path) TruncateTo(id string) (Path, bool) {
	for i, item := range p {
		if item.ID == id {
			out := make(Path, i+1)
			copy(out, p[:i+1])
			return out, true
		}
	}
	return p, false
}

// Current is the last element.
func (p Path) Current() BreadcrumbItem {
	if len(p) == 0 {
		return Root
	}
	return p[len(p)-1]
}

// Parent is the element before the current one.
func (p Path) Parent() (BreadcrumbItem, bool) {
	if len(p) < 2 {
		return BreadcrumbItem{}, false
	}
	return p[len(p)-2], true
}

// String renders the path as "Root / Reports / 2024".
func (p Path) String() string {
	names := make([]string, len(p))
	for i, item := range p {
		names[i] = item.Name
	}
	return strings.Join(names, " / ")
}
