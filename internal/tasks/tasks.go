package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register decoders for image.Decode
	"image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/email"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/metrics"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/storage"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// Task types handled by the background workers.
const (
	TypeEmailDelivery       = "email:deliver"
	TypeAttachmentThumbnail = "attachment:thumbnail"
	TypeAttachmentCleanup   = "attachment:cleanup"
	TypeInvoiceCheckOverdue = "invoice:check_overdue"
)

// Queue names. Thumbnails get their own queue so that the image worker can
// be scaled separately.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// IAsynqClient is the part of *asynq.Client used to enqueue tasks.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue implements services.IJobQueue on top of asynq.
type Queue struct {
	client IAsynqClient
}

func NewQueue(client IAsynqClient) *Queue {
	return &Queue{client: client}
}

var _ services.IJobQueue = (*Queue)(nil)

// ThumbnailTaskPayload names the attachment to build a preview for.
type ThumbnailTaskPayload struct {
	AttachmentID string `json:"attachment_id"`
}

func (q *Queue) EnqueueEmail(ctx context.Context, job services.EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}
	task := asynq.NewTask(TypeEmailDelivery, payload, asynq.MaxRetry(5), asynq.Queue(QueueCritical))
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email to %s: %w", job.Type, job.To, err)
	}
	log.Printf("Enqueued %s email task %s for user %s", job.Type, info.ID, job.UserID.Hex())
	return nil
}

func (q *Queue) EnqueueThumbnail(ctx context.Context, attachmentID primitive.ObjectID) error {
	payload, err := json.Marshal(ThumbnailTaskPayload{AttachmentID: attachmentID.Hex()})
	if err != nil {
		return fmt.Errorf("failed to marshal thumbnail payload: %w", err)
	}
	task := asynq.NewTask(TypeAttachmentThumbnail, payload, asynq.MaxRetry(3), asynq.Queue(QueueImages))
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue thumbnail for attachment %s: %w", attachmentID.Hex(), err)
	}
	log.Printf("Enqueued thumbnail task %s for attachment %s", info.ID, attachmentID.Hex())
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	storage     storage.IAttachmentStorage
	templates   services.IEmailTemplateService
	profiles    services.IProfileService
	attachments services.IAttachmentService
	clients     services.IClientService
	invoices    services.IInvoiceService
	queue       services.IJobQueue
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	store storage.IAttachmentStorage,
	templates services.IEmailTemplateService,
	profiles services.IProfileService,
	attachments services.IAttachmentService,
	clients services.IClientService,
	invoices services.IInvoiceService,
	queue services.IJobQueue,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		storage:     store,
		templates:   templates,
		profiles:    profiles,
		attachments: attachments,
		clients:     clients,
		invoices:    invoices,
		queue:       queue,
	}
}

// NewServer creates an asynq server with the queue priorities used by the
// workers.
func NewServer(rdb *redis.Client, concurrency int) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueImages:   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)
}

// NewServeMux registers the handlers for the given worker kinds. The image
// worker only builds thumbnails; the background worker does the rest.
func NewServeMux(processor *TaskProcessor, isBgWorker, isImageWorker bool) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, counted(TypeEmailDelivery, processor.HandleEmailDeliveryTask))
		mux.HandleFunc(TypeAttachmentCleanup, counted(TypeAttachmentCleanup, processor.HandleAttachmentCleanupTask))
		mux.HandleFunc(TypeInvoiceCheckOverdue, counted(TypeInvoiceCheckOverdue, processor.HandleInvoiceCheckOverdueTask))
		log.Println("Registered background task handlers.")
	}
	if isImageWorker {
		mux.HandleFunc(TypeAttachmentThumbnail, counted(TypeAttachmentThumbnail, processor.HandleThumbnailTask))
		log.Println("Registered image processing task handlers.")
	}
	return mux
}

// NewScheduler registers the periodic tasks: orphan cleanup on the
// configured period and the overdue invoice check every hour.
func NewScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{Location: time.UTC})

	period := cfg.AttachmentCleanupPeriod
	if period < time.Minute {
		period = time.Hour
	}
	cleanupSpec := fmt.Sprintf("@every %s", period)
	if _, err := scheduler.Register(cleanupSpec, asynq.NewTask(TypeAttachmentCleanup, nil, asynq.Queue(QueueDefault))); err != nil {
		return nil, fmt.Errorf("failed to schedule attachment cleanup: %w", err)
	}
	if _, err := scheduler.Register("@hourly", asynq.NewTask(TypeInvoiceCheckOverdue, nil, asynq.Queue(QueueDefault))); err != nil {
		return nil, fmt.Errorf("failed to schedule overdue check: %w", err)
	}
	return scheduler, nil
}

func counted(task string, h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t)
		metrics.Jobs.WithLabelValues(task, metrics.Outcome(err)).Inc()
		return err
	}
}

// --- Task Handlers ---

// HandleEmailDeliveryTask renders the user's template for the job type and
// sends it. Users without a stored template get the defaults.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var job services.EmailJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if job.To == "" || job.UserID.IsZero() {
		return fmt.Errorf("email task without recipient or user: %w", asynq.SkipRetry)
	}

	log.Printf("Sending %s email to %s for user %s", job.Type, job.To, job.UserID.Hex())

	tmpl, err := p.templates.GetForType(ctx, job.UserID, job.Type)
	if err != nil {
		log.Printf("Error getting %s template for user %s: %v", job.Type, job.UserID.Hex(), err)
		return err
	}
	state, err := tmpl.State()
	if err != nil {
		return fmt.Errorf("stored %s template is unusable: %v: %w", job.Type, err, asynq.SkipRetry)
	}
	profile, err := p.profiles.GetProfile(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("user %s not found: %w", job.UserID.Hex(), asynq.SkipRetry)
		}
		return err
	}
	if inv, ok := state.(templating.Invoice); ok && job.Reference != "" {
		state, err = p.withInvoice(ctx, job, inv)
		if err != nil {
			return err
		}
	}

	rendered, err := templating.Render(state, profile)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %v: %w", job.Type, err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, job.To)
	}
	raw, err := email.BuildMessage(fromAddress, []string{job.To}, profile.Email, job.Type, rendered)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.emailSender.Send(ctx, []string{job.To}, rendered.Subject, raw); err != nil {
		log.Printf("Email sending failed (will retry): %v", err)
		return err
	}

	log.Printf("Email task processed successfully: To=%s, Type=%s", job.To, job.Type)
	return nil
}

// withInvoice fills the invoice layout with the referenced invoice's lines.
func (p *TaskProcessor) withInvoice(ctx context.Context, job services.EmailJob, inv templating.Invoice) (templating.State, error) {
	id, err := primitive.ObjectIDFromHex(job.Reference)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice reference %q: %w", job.Reference, asynq.SkipRetry)
	}
	invoice, err := p.invoices.Get(ctx, job.UserID, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("invoice %s not found: %w", job.Reference, asynq.SkipRetry)
		}
		return nil, err
	}
	inv.Items = append([]templating.LineItem(nil), invoice.Items...)
	inv.Header.Subtitle = invoice.InvoiceNumber
	if invoice.Notes != "" {
		inv.Notes = invoice.Notes
	}
	return inv, nil
}

// HandleThumbnailTask builds a JPEG preview for an image attachment.
func (p *TaskProcessor) HandleThumbnailTask(ctx context.Context, t *asynq.Task) error {
	var payload ThumbnailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal thumbnail task payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := primitive.ObjectIDFromHex(payload.AttachmentID)
	if err != nil {
		return fmt.Errorf("invalid attachment id %q: %w", payload.AttachmentID, asynq.SkipRetry)
	}

	att, err := p.attachments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Printf("Attachment %s is gone, skipping thumbnail", payload.AttachmentID)
			return nil
		}
		return err
	}
	if !att.IsImage() {
		return nil
	}

	data, _, err := p.storage.Get(ctx, att.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("object %s not found: %w", att.Key, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download %s: %w", att.Key, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("Error decoding image %s: %v", att.Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", att.Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	preview, err := Thumbnail(img, uint(p.cfg.ThumbnailMaxDimension))
	if err != nil {
		return err
	}
	previewKey := storage.PreviewKey(att.Key)
	if err := p.storage.Put(ctx, previewKey, "image/jpeg", preview); err != nil {
		return fmt.Errorf("failed to upload preview %s: %w", previewKey, err)
	}
	if err := p.attachments.SetPreview(ctx, att.ID, previewKey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Deleted while we were working.
			_ = p.storage.Delete(ctx, previewKey)
			return nil
		}
		return err
	}
	log.Printf("Thumbnail task processed successfully: Key=%s", previewKey)
	return nil
}

// Thumbnail scales img to fit within maxDim on both sides and encodes it as
// JPEG. Smaller images keep their size.
func Thumbnail(img image.Image, maxDim uint) ([]byte, error) {
	if maxDim == 0 {
		maxDim = 320
	}
	out := img
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		out = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// HandleAttachmentCleanupTask removes staged attachments that were never
// attached to a client or project.
func (p *TaskProcessor) HandleAttachmentCleanupTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-p.cfg.AttachmentOrphanTTL)
	orphans, err := p.attachments.FindOrphans(ctx, cutoff)
	if err != nil {
		log.Printf("Error finding orphaned attachments: %v", err)
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	removed := 0
	for i := range orphans {
		if err := p.attachments.Remove(ctx, &orphans[i]); err != nil {
			log.Printf("ERROR removing orphaned attachment %s: %v", orphans[i].ID.Hex(), err)
			continue
		}
		removed++
	}
	log.Printf("Attachment cleanup finished. Removed %d of %d orphans older than %s.", removed, len(orphans), cutoff.Format(time.RFC3339))
	return nil
}

// HandleInvoiceCheckOverdueTask sends one follow-up email per overdue invoice.
func (p *TaskProcessor) HandleInvoiceCheckOverdueTask(ctx context.Context, t *asynq.Task) error {
	overdue, err := p.invoices.FindOverdueInvoices(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("Error finding overdue invoices: %v", err)
		return err
	}

	notified := 0
	for i := range overdue {
		if err := p.notifyOverdue(ctx, &overdue[i]); err != nil {
			log.Printf("ERROR notifying overdue invoice %s: %v", overdue[i].InvoiceNumber, err)
			continue
		}
		notified++
	}
	if len(overdue) > 0 {
		log.Printf("Overdue check finished. Notified %d of %d invoices.", notified, len(overdue))
	}
	return nil
}

func (p *TaskProcessor) notifyOverdue(ctx context.Context, invoice *models.Invoice) error {
	client, err := p.clients.Get(ctx, invoice.UserID, invoice.ClientID)
	if err != nil {
		return fmt.Errorf("load client %s: %w", invoice.ClientID.Hex(), err)
	}
	job := services.EmailJob{
		UserID:    invoice.UserID,
		Type:      templating.TypeFollowUp,
		To:        client.Email,
		Reference: invoice.ID.Hex(),
	}
	if err := p.queue.EnqueueEmail(ctx, job); err != nil {
		return err
	}
	return p.invoices.MarkInvoiceOverdueNotified(ctx, invoice.ID)
}
