package forum

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gator-forum/internal/models"
	"gator-forum/internal/utils"
)

func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", utils.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return "", utils.NewValidationError(fmt.Sprintf("Title must be at most %d characters", models.MaxTitleLength))
	}
	return title, nil
}

func cleanMessage(raw string) (string, error) {
	msg := strings.TrimSpace(raw)
	if msg == "" {
		return "", utils.NewValidationError("Message is required")
	}
	return msg, nil
}

func cleanCategory(raw string) (models.Category, error) {
	c, ok := models.ParseCategory(raw)
	if !ok {
		return "", utils.NewValidationError(fmt.Sprintf("Category %q is not one of %v", raw, models.Categories))
	}
	return c, nil
}

func cleanTags(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, utils.NewValidationError("At least one tag is required")
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, utils.NewValidationError("Tags must be non-empty")
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func checkRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < models.MinRating || *rating > models.MaxRating {
		return utils.NewValidationError(fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating))
	}
	return nil
}
