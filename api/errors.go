package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClassifyError maps an error from the board layer to a status and a JSON
// body. Validation errors keep their message; database failures are matched
// on gorm's translated errors and then on the SQLite result code.
func ClassifyError(err error) (int, gin.H) {
	var appErr *apperrors.Error
	isAppErr := errors.As(err, &appErr)

	if isAppErr && appErr.Kind == apperrors.KindValidation {
		if strings.Contains(appErr.Message, "date") {
			return http.StatusBadRequest, gin.H{"error": appErr.Message, "type": "date_validation"}
		}
		return http.StatusBadRequest, gin.H{"error": appErr.Message}
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, gin.H{"error": "A card with this title already exists"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusNotFound, gin.H{"error": "Referenced column or label does not exist"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, gin.H{"error": "Card not found"}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return http.StatusInternalServerError, gin.H{"error": "Database error", "code": sqliteCode(sqliteErr)}
	}

	if isAppErr {
		switch appErr.Kind {
		case apperrors.KindNotFound:
			return http.StatusNotFound, gin.H{"error": appErr.Message}
		case apperrors.KindConflict:
			return http.StatusConflict, gin.H{"error": appErr.Message}
		}
		return http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred", "details": appErr.Message}
	}

	details := "Unknown error"
	if err != nil {
		details = err.Error()
	}
	return http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred", "details": details}
}

func sqliteCode(err sqlite3.Error) string {
	if err.ExtendedCode != 0 {
		return strconv.Itoa(int(err.ExtendedCode))
	}
	return strconv.Itoa(int(err.Code))
}

func respondError(c *gin.Context, err error) {
	status, body := ClassifyError(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("route", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		zap.L().Debug("Request rejected", zap.String("route", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, body)
}
