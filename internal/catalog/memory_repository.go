package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu        sync.RWMutex
	mailTypes map[int64]*MailType
	templates map[int64]*Template
	images    map[int64]*InlineImage

	nextMailTypeID int64
	nextTemplateID int64
	nextImageID    int64
}

// NewMemoryRepository creates a new in-memory catalog repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mailTypes: make(map[int64]*MailType),
		templates: make(map[int64]*Template),
		images:    make(map[int64]*InlineImage),
	}
}

// GetMailType retrieves a mail type by ID.
func (r *MemoryRepository) GetMailType(ctx context.Context, id int64) (*MailType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mt, ok := r.mailTypes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMailTypeNotFound, id)
	}

	copy := *mt
	return &copy, nil
}

// CreateMailType registers a new mail type.
func (r *MemoryRepository) CreateMailType(ctx context.Context, mt *MailType) error {
	if mt == nil {
		return fmt.Errorf("catalog: mail type is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if mt.ID == 0 {
		r.nextMailTypeID++
		mt.ID = r.nextMailTypeID
	}

	copy := *mt
	r.mailTypes[mt.ID] = &copy
	return nil
}

// GetTemplate retrieves one specific template version by its row ID.
func (r *MemoryRepository) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}

	return copyTemplate(t), nil
}

// ActiveTemplate retrieves the single active template version for a mail type.
func (r *MemoryRepository) ActiveTemplate(ctx context.Context, mailTypeID int64) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.MailTypeID == mailTypeID && t.Active {
			return copyTemplate(t), nil
		}
	}

	return nil, fmt.Errorf("%w: no active version for mail type %d", ErrTemplateNotFound, mailTypeID)
}

// CreateTemplate stores the first version of a template for a mail type.
func (r *MemoryRepository) CreateTemplate(ctx context.Context, t *Template) error {
	if t == nil {
		return fmt.Errorf("catalog: template is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mailTypes[t.MailTypeID]; !ok {
		return fmt.Errorf("%w: %d", ErrMailTypeNotFound, t.MailTypeID)
	}
	for _, existing := range r.templates {
		if existing.MailTypeID == t.MailTypeID && existing.Active {
			return fmt.Errorf("catalog: mail type %d already has an active template", t.MailTypeID)
		}
	}

	r.nextTemplateID++
	t.ID = r.nextTemplateID
	t.Version = 1
	t.Active = true
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	r.templates[t.ID] = copyTemplate(t)
	return nil
}

// UpdateTemplate appends a new version and deactivates the current one.
func (r *MemoryRepository) UpdateTemplate(ctx context.Context, mailTypeID int64, subject, content string, variables []string) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current *Template
	for _, t := range r.templates {
		if t.MailTypeID == mailTypeID && t.Active {
			current = t
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: no active version for mail type %d", ErrTemplateNotFound, mailTypeID)
	}

	r.nextTemplateID++
	next := &Template{
		ID:         r.nextTemplateID,
		MailTypeID: mailTypeID,
		Subject:    subject,
		Content:    content,
		Version:    current.Version + 1,
		Active:     true,
		Variables:  append([]string(nil), variables...),
		CreatedAt:  time.Now(),
	}

	current.Active = false
	r.templates[next.ID] = next

	return copyTemplate(next), nil
}

// ActiveInlineImages lists the active inline images for a mail type.
func (r *MemoryRepository) ActiveInlineImages(ctx context.Context, mailTypeID int64) ([]InlineImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var images []InlineImage
	for _, img := range r.images {
		if img.MailTypeID == mailTypeID && img.Active {
			images = append(images, *img)
		}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].DisplayOrder != images[j].DisplayOrder {
			return images[i].DisplayOrder < images[j].DisplayOrder
		}
		return images[i].ContentID < images[j].ContentID
	})

	return images, nil
}

// CreateInlineImage stores the first version of an image.
func (r *MemoryRepository) CreateInlineImage(ctx context.Context, img *InlineImage) error {
	if img == nil {
		return fmt.Errorf("catalog: inline image is nil")
	}
	if img.ContentID == "" {
		return fmt.Errorf("catalog: content id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mailTypes[img.MailTypeID]; !ok {
		return fmt.Errorf("%w: %d", ErrMailTypeNotFound, img.MailTypeID)
	}
	for _, existing := range r.images {
		if existing.MailTypeID == img.MailTypeID && existing.ContentID == img.ContentID && existing.Active {
			return fmt.Errorf("catalog: mail type %d already has an active image for cid %q", img.MailTypeID, img.ContentID)
		}
	}

	r.nextImageID++
	img.ID = r.nextImageID
	img.Version = 1
	img.Active = true

	copy := *img
	r.images[img.ID] = &copy
	return nil
}

// ReplaceInlineImage appends a new version and deactivates the current one.
func (r *MemoryRepository) ReplaceInlineImage(ctx context.Context, mailTypeID int64, contentID, blobURL string) (*InlineImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current *InlineImage
	for _, img := range r.images {
		if img.MailTypeID == mailTypeID && img.ContentID == contentID && img.Active {
			current = img
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: no active version for cid %q", ErrImageNotFound, contentID)
	}

	r.nextImageID++
	next := &InlineImage{
		ID:           r.nextImageID,
		MailTypeID:   mailTypeID,
		ContentID:    contentID,
		BlobURL:      blobURL,
		Version:      current.Version + 1,
		DisplayOrder: current.DisplayOrder,
		Active:       true,
	}

	current.Active = false
	r.images[next.ID] = next

	copy := *next
	return &copy, nil
}

func copyTemplate(t *Template) *Template {
	copy := *t
	if t.Variables != nil {
		copy.Variables = append([]string(nil), t.Variables...)
	}
	return &copy
}
