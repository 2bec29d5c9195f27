package api

import "fmt"

const (
	maxTitleLength = 200
	maxBodyLength  = 50000
	maxTags        = 20
)

func validateCreateNote(req CreateNoteRequest) error {
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(req.Title) > maxTitleLength {
		return fmt.Errorf("title exceeds %d characters", maxTitleLength)
	}
	if len(req.Body) > maxBodyLength {
		return fmt.Errorf("body exceeds %d characters", maxBodyLength)
	}
	if err := validateTags(req.Tags); err != nil {
		return err
	}
	return nil
}

func validateUpdateNote(req UpdateNoteRequest) error {
	if req.Title == nil && req.Body == nil && req.Tags == nil {
		return fmt.Errorf("at least one of title, body or tags is required")
	}
	if req.Title != nil {
		if *req.Title == "" {
			return fmt.Errorf("title cannot be empty")
		}
		if len(*req.Title) > maxTitleLength {
			return fmt.Errorf("title exceeds %d characters", maxTitleLength)
		}
	}
	if req.Body != nil && len(*req.Body) > maxBodyLength {
		return fmt.Errorf("body exceeds %d characters", maxBodyLength)
	}
	if req.Tags != nil {
		if err := validateTags(*req.Tags); err != nil {
			return err
		}
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > maxTags {
		return fmt.Errorf("too many tags, maximum is %d", maxTags)
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tags cannot be empty")
		}
	}
	return nil
}
