package helpers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination reads page/limit query params with the usual defaults.
func ParsePagination(c *gin.Context) (page int, limit int, err error) {
	page, err = StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, fmt.Errorf("invalid page number")
	}

	limit, err = StringToInt(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		return 0, 0, fmt.Errorf("invalid limit")
	}

	return page, limit, nil
}
