package dictionary

// Arena is a set of fixed-size byte pages shared by every term's
// posting buffer, replacing the original's negative-offset chained
// chunks with byte pages plus typed indices: avoid raw pointers so
// ownership is a single owner. A typed index here is simply a slice
// header into one of the arena's pages; Go's slice already carries
// (pointer, length, capacity), so there is no need to hand-roll a
// (page, offset) pair the way a C allocator would.
type Arena struct {
	pageSize int
	pages    [][]byte
}

const defaultPageSize = 64 * 1024

// NewArena creates an empty arena using the default page size.
func NewArena() *Arena {
	return &Arena{pageSize: defaultPageSize}
}

// alloc returns a zeroed slice of length n, drawn from the arena's
// current page (starting a new page first if n would not fit, or if n
// itself exceeds a page, as its own dedicated page).
func (a *Arena) alloc(n int) []byte {
	if n > a.pageSize {
		page := make([]byte, n)
		a.pages = append(a.pages, page)
		return page
	}
	if len(a.pages) == 0 || cap(a.pages[len(a.pages)-1])-len(a.pages[len(a.pages)-1]) < n {
		a.pages = append(a.pages, make([]byte, 0, a.pageSize))
	}
	last := &a.pages[len(a.pages)-1]
	start := len(*last)
	*last = (*last)[:start+n]
	return (*last)[start : start+n : start+n]
}

// Bytes reports the total bytes currently allocated across all pages,
// used by Dictionary.MemoryOccupied.
func (a *Arena) Bytes() int64 {
	var total int64
	for _, p := range a.pages {
		total += int64(cap(p))
	}
	return total
}
