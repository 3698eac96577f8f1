package export

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat indicates a format the renderer cannot produce.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Service renders documents into downloadable formats.
type Service struct {
	log *zap.Logger
}

func NewService(log *zap.Logger) *Service {
	return &Service{log: log}
}

// Export renders doc into the requested format.
func (s *Service) Export(ctx context.Context, doc DocumentInfo, format Format) (*Result, error) {
	body := ContentToHTML(doc.Content)
	page, err := RenderDocumentHTML(TemplateData{
		Title:        doc.Title,
		Status:       doc.Status,
		BoardName:    doc.BoardName,
		Author:       doc.OwnerName,
		LastModified: doc.LastModified,
		ContentHTML:  template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("render document page: %w", err)
	}

	switch format {
	case FormatPDF:
		res, err := renderPDF(ctx, page, doc.Title)
		if err != nil {
			s.log.Warn("pdf export failed", zap.String("document_id", doc.ID), zap.Error(err))
			return nil, err
		}
		return res, nil
	case FormatDOCX:
		res, err := renderDOCX(ctx, page, doc.Title)
		if err != nil {
			s.log.Warn("docx export failed", zap.String("document_id", doc.ID), zap.Error(err))
			return nil, err
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
