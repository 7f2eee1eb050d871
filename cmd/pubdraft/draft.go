package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/eringen/pubdraft"
	"github.com/eringen/pubdraft/autosave"
	"github.com/eringen/pubdraft/client"
	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/internal/config"
	"github.com/eringen/pubdraft/markdown"
	"github.com/eringen/pubdraft/session"
	"github.com/eringen/pubdraft/upload"
	"github.com/eringen/pubdraft/views"
)

var (
	showFormat string
	showCopy   bool
	serverURL  string
)

func newDraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect and submit the saved draft",
		Long: `Work with the draft saved for --owner in the configured database.

Examples:
  # Print the draft as Markdown and copy it to the clipboard
  pubdraft draft show --format markdown --copy

  # Embed an image, uploading it through a running server
  pubdraft draft attach photo.png --server http://localhost:3000/api

  # Submit the draft for review
  pubdraft draft submit`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE:  runDraftShow,
	}
	show.Flags().StringVarP(&showFormat, "format", "f", "text", "Output format (json, text, markdown, html)")
	show.Flags().BoolVar(&showCopy, "copy", false, "Also copy the output to the clipboard")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE:  runDraftClear,
	}

	attach := &cobra.Command{
		Use:   "attach <file>",
		Short: "Upload an image and embed it at the end of the draft",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftAttach,
	}

	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit the saved draft for review",
		Args:  cobra.NoArgs,
		RunE:  runDraftSubmit,
	}

	for _, c := range []*cobra.Command{attach, submit} {
		c.Flags().StringVar(&serverURL, "server", client.DefaultBaseURL, "API root of the pubdraft server")
	}
	cmd.AddCommand(show, clearCmd, attach, submit)
	return cmd
}

// openStore opens the configured database and returns the owner's
// namespace.
func openStore() (*pubdraft.Store, *pubdraft.KV, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := pubdraft.NewStore(cfg.Server.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Namespace(owner), nil
}

// loadDraft restores the owner's draft into a fresh editor.
func loadDraft(ctx context.Context, kv *pubdraft.KV) (*editor.Editor, error) {
	ed := editor.New()
	if _, err := autosave.New(ed, kv).Restore(ctx); err != nil {
		return nil, err
	}
	return ed, nil
}

func formatDraft(format, title string, doc *document.Document) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(struct {
			Title   string               `json:"title"`
			Content document.RawDocument `json:"content"`
		}{title, doc.Raw()}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "text":
		return title + "\n\n" + doc.PlainText() + "\n", nil
	case "markdown", "md":
		return "# " + title + "\n\n" + markdown.Export(doc), nil
	case "html":
		var buf bytes.Buffer
		if err := views.Preview(title, doc).Render(context.Background(), &buf); err != nil {
			return "", err
		}
		return buf.String() + "\n", nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	store, kv, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ed, err := loadDraft(cmd.Context(), kv)
	if err != nil {
		return err
	}
	title, doc := ed.Draft()
	out, err := formatDraft(showFormat, title, doc)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if showCopy {
		if err := clipboard.WriteAll(out); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Copied to clipboard")
	}
	return nil
}

func runDraftClear(cmd *cobra.Command, args []string) error {
	store, kv, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := autosave.New(editor.New(), kv)
	if err := ctrl.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Draft of %s cleared\n", owner)
	return nil
}

// openSession opens an editor session on the owner's draft that uploads
// and submits through the server at serverURL.
func openSession(ctx context.Context, kv *pubdraft.KV) (*session.Session, error) {
	api := client.New(serverURL)
	s := session.New(owner, kv, api, api)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func runDraftAttach(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	store, kv, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	s, err := openSession(ctx, kv)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	before := len(s.Editor.Document().Images())
	if err := s.Editor.SetSelection(s.Editor.Document().End()); err != nil {
		return err
	}
	err = s.Uploads.Accept(ctx, upload.Candidate{
		Name:   filepath.Base(path),
		Type:   http.DetectContentType(data),
		Size:   int64(len(data)),
		Data:   data,
		Origin: upload.FileSelection,
	})
	if err != nil {
		return err
	}
	s.Uploads.Wait()

	images := s.Editor.Document().Images()
	if len(images) == before {
		return fmt.Errorf("attach %s: %s", path, s.Board.Current().Text)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Embedded %s\n", images[len(images)-1].Src())
	return nil
}

func runDraftSubmit(cmd *cobra.Command, args []string) error {
	store, kv, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	s, err := openSession(ctx, kv)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	sub, err := s.Submit(ctx)
	if err != nil {
		if code := client.Code(err); code != "" {
			return fmt.Errorf("submit: %s", code)
		}
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Submitted %s (%s)\n", sub.ID, sub.Status)
	return nil
}
