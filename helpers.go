package pubdraft

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen bounds slugs derived from upload names.
const maxSlugLen = 60

// Slugify folds s to lower-case ASCII words joined by dashes. Accents are
// stripped, so "Café Crème" becomes "cafe-creme"; other letters are dropped.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}
	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	slug := strings.Join(words, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// readFormFile reads an uploaded multipart file into memory.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// pageParams parses 1-based page number and page size query values,
// clamping size to [1, maxSize].
func pageParams(num, size string, defSize, maxSize int) (limit, offset, page int) {
	page, err := strconv.Atoi(num)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(size)
	if err != nil || limit < 1 {
		limit = defSize
	}
	limit = min(limit, maxSize)
	return limit, (page - 1) * limit, page
}
