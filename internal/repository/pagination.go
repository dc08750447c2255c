package repository

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageWindow clamps paging input and returns page, size and offset.
func pageWindow(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}
