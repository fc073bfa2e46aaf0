package utils

// PagesAvailable is ceil(count / pageSize).
func PagesAvailable(count int64, pageSize int) int64 {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	size := int64(pageSize)
	pages := count / size
	if count%size != 0 {
		pages++
	}
	return pages
}

// Offset is the number of rows before page (1-based) among count rows.
// ok is false when the page starts past the last row, so there is nothing to read.
func Offset(page, pageSize int, count int64) (offset int, ok bool) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || int64(page-1) >= PagesAvailable(count, pageSize) {
		return 0, false
	}
	return (page - 1) * pageSize, true
}
