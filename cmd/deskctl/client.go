package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
)

const uploadConcurrency = 4

type clientAPI interface {
	UploadAttachment(ctx context.Context, f intake.File) (intake.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
	CreateClient(ctx context.Context, f intake.ClientForm, atts []intake.Attachment) error
}

// stagedUploads deletes the attachments of a client that was never created.
// Once the submit succeeded the attachments belong to the client and
// releasing them is a no-op.
type stagedUploads struct {
	ctx context.Context
	api clientAPI

	mu        sync.Mutex
	ids       map[string]string // attachment url -> id
	submitted bool
}

func (s *stagedUploads) upload(ctx context.Context, f intake.File) (intake.Attachment, error) {
	att, err := s.api.UploadAttachment(ctx, f)
	if err != nil {
		return att, err
	}
	s.mu.Lock()
	s.ids[att.URL] = att.ID
	s.mu.Unlock()
	return att, nil
}

func (s *stagedUploads) Release(url string) {
	s.mu.Lock()
	id, ok := s.ids[url]
	delete(s.ids, url)
	submitted := s.submitted
	s.mu.Unlock()
	if !ok || submitted {
		return
	}
	if err := s.api.DeleteAttachment(s.ctx, id); err != nil {
		log.Printf("Failed to delete staged attachment %s: %v", id, err)
	}
}

func openFiles(paths []string) ([]intake.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	files := make([]intake.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files = append(files, intake.File{Name: filepath.Base(p), MimeType: mimeType, Size: info.Size(), Body: f})
	}
	return files, closeAll, nil
}

// runClient creates a client through the intake form, uploading any files
// as its attachments first.
func runClient(ctx context.Context, api clientAPI, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	company := fs.String("company", "", "company name; marks the client as a company")
	phone := fs.String("phone", "", "phone number")
	welcome := fs.Bool("welcome", false, "send the welcome email")
	if err := fs.Parse(args); err != nil || fs.NArg() < 2 {
		return errUsage
	}

	staged := &stagedUploads{ctx: ctx, api: api, ids: map[string]string{}}
	form := intake.NewForm[intake.ClientForm](staged)
	form.OnSuccess(func(f intake.ClientForm) {
		staged.mu.Lock()
		staged.submitted = true
		staged.mu.Unlock()
		fmt.Fprintf(stdout, "Client created: %s <%s>\n", f.Name, f.Email)
	})
	form.Open(ctx)
	defer form.Close()

	_ = form.Edit(func(f *intake.ClientForm) {
		f.Name = fs.Arg(0)
		f.Email = fs.Arg(1)
		f.Phone = *phone
		f.IsCompany = *company != ""
		f.CompanyName = *company
		f.SendWelcome = *welcome
	})
	// Nothing is uploaded for a form that cannot be submitted.
	if err := form.Value().Validate(); err != nil {
		return err
	}

	if paths := fs.Args()[2:]; len(paths) > 0 {
		files, closeFiles, err := openFiles(paths)
		if err != nil {
			return err
		}
		err = form.Upload(intake.NewUploader(staged.upload, staged, uploadConcurrency), files)
		closeFiles()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Uploaded %d attachment(s)\n", form.Attachments().Len())
	}

	return form.Submit(api.CreateClient)
}
