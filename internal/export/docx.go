package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// renderDOCX converts HTML to a Word document via pandoc.
func renderDOCX(ctx context.Context, html, title string) (*Result, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return nil, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	cmd := exec.CommandContext(ctx, "pandoc",
		"-f", "html",
		"-t", "docx",
		"--standalone",
		"-o", "-",
	)
	cmd.Stdin = strings.NewReader(html)

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("pandoc: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("pandoc: %w", err)
	}

	return &Result{
		Data:     out,
		Filename: exportFilename(title) + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}
