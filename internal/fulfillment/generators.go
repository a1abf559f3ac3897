package fulfillment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"planstore-backend/internal/models"
)

// ContentGenerator produces the working files for one deliverable type.
// Implementations write into dir and must be safe to run concurrently with
// the other generators; each gets its own subdirectory.
//
// The generators below are deterministic placeholders standing in for the
// rendering engine, CAD exporter, and document pipeline.
type ContentGenerator interface {
	FileType() models.FileType
	Generate(ctx context.Context, order *models.Order, items []models.OrderItem, dir string) error
}

// DefaultGenerators returns one generator per deliverable type, in the
// canonical type order.
func DefaultGenerators() []ContentGenerator {
	return []ContentGenerator{
		&RenderGenerator{},
		&CADGenerator{},
		&PDFGenerator{},
	}
}

type RenderGenerator struct{}

func (g *RenderGenerator) FileType() models.FileType { return models.FileTypeRenderImages }

func (g *RenderGenerator) Generate(ctx context.Context, order *models.Order, items []models.OrderItem, dir string) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, view := range []string{"front", "rear", "interior"} {
			name := fmt.Sprintf("%s_%s.ppm", sanitizeName(item.PlanName), view)
			content := placeholderImage(order.ID.String(), item.PlanID, view)
			if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
				return fmt.Errorf("failed to write render %s: %w", name, err)
			}
		}
	}
	return nil
}

// placeholderImage emits a tiny valid PPM whose pixel values derive from
// the order and plan, so output is stable across runs.
func placeholderImage(orderID, planID, view string) []byte {
	seed := byte(len(orderID) + len(planID) + len(view))
	var b strings.Builder
	b.WriteString("P3\n4 4\n255\n")
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "%d %d %d\n", seed+byte(i), seed^byte(i), seed*2+byte(i))
	}
	return []byte(b.String())
}

type CADGenerator struct{}

func (g *CADGenerator) FileType() models.FileType { return models.FileTypeCADFiles }

func (g *CADGenerator) Generate(ctx context.Context, order *models.Order, items []models.OrderItem, dir string) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("%s.dxf", sanitizeName(item.PlanName))
		var b strings.Builder
		b.WriteString("0\nSECTION\n2\nHEADER\n9\n$PROJECTNAME\n1\n")
		b.WriteString(item.PlanName)
		b.WriteString("\n0\nENDSEC\n")
		if item.Customization.Valid {
			b.WriteString("999\n")
			b.WriteString(item.Customization.String)
			b.WriteString("\n")
		}
		b.WriteString("0\nEOF\n")
		if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0644); err != nil {
			return fmt.Errorf("failed to write CAD file %s: %w", name, err)
		}
	}
	return nil
}

type PDFGenerator struct{}

func (g *PDFGenerator) FileType() models.FileType { return models.FileTypePDFFiles }

func (g *PDFGenerator) Generate(ctx context.Context, order *models.Order, items []models.OrderItem, dir string) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("%s_documentation.pdf", sanitizeName(item.PlanName))
		body := fmt.Sprintf("Construction documentation\nPlan: %s (%s)\nOrder: %s\nCustomer: %s\n",
			item.PlanName, item.PlanID, order.ID, order.CustomerName)
		content := placeholderPDF(body)
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return fmt.Errorf("failed to write PDF %s: %w", name, err)
		}
	}
	return nil
}

// placeholderPDF wraps text in a minimal single-page PDF skeleton.
func placeholderPDF(body string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	b.WriteString("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	b.WriteString("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >> endobj\n")
	fmt.Fprintf(&b, "%% %s\n", strings.ReplaceAll(body, "\n", "\n% "))
	b.WriteString("%%EOF\n")
	return []byte(b.String())
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-")
	cleaned := replacer.Replace(strings.TrimSpace(name))
	if cleaned == "" {
		return "plan"
	}
	return strings.ToLower(cleaned)
}
