package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobs"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/pdfinfo"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/upload"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

var badgeColors = map[schema.Badge]*color.Color{
	schema.BadgeSuccess:    color.New(color.FgGreen),
	schema.BadgeProcessing: color.New(color.FgYellow),
	schema.BadgeError:      color.New(color.FgRed, color.Bold),
	schema.BadgePending:    color.New(color.FgCyan),
}

func badgeLabel(v jobs.View) string {
	c, ok := badgeColors[v.Badge]
	if !ok {
		return string(v.Status)
	}
	return c.Sprint(v.Status)
}

// renderJobs writes the job table in backend order. Status goes last so
// color escapes do not disturb column alignment.
func renderJobs(w io.Writer, views []jobs.View) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No translation jobs yet. Submit a PDF to get started.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tFILE\tLANGUAGE\tCREATED\tDOWNLOAD\tSTATUS")
	for _, v := range views {
		download := "-"
		if v.Downloadable {
			download = "ready"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.JobID, v.Filename, v.LanguageName, v.CreatedLocal(), download, badgeLabel(v))
	}
	return tw.Flush()
}

func renderLanguages(w io.Writer, langs []schema.Language, def string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLANGUAGE")
	for _, l := range langs {
		name := l.Name
		if l.Code == def {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", l.Code, name)
	}
	return tw.Flush()
}

func renderPDFInfo(w io.Writer, file upload.FileInfo, info pdfinfo.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\t%s\n", file.Name)
	fmt.Fprintf(tw, "Type\t%s\n", file.ContentType)
	fmt.Fprintf(tw, "Size\t%d bytes\n", file.Size)
	if info.Title != "" {
		fmt.Fprintf(tw, "Title\t%s\n", info.Title)
	}
	fmt.Fprintf(tw, "Pages\t%d\n", info.Pages)
	if info.WidthPts > 0 {
		size := fmt.Sprintf("%.0f x %.0f pts", info.WidthPts, info.HeightPts)
		if info.PaperName != "" {
			size += " (" + info.PaperName + ")"
		}
		fmt.Fprintf(tw, "Page size\t%s\n", size)
	}
	if info.Encrypted {
		fmt.Fprintln(tw, "Encrypted\tyes")
	}
	return tw.Flush()
}
