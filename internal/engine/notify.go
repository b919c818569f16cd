package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// Notification assembles the outbound object for a notification type,
// applying the documented fallbacks: sender identity defaults to the site,
// and the subject defaults to "<form title>: <step name>"
func (r *Run) Notification(
	ctx context.Context, typ api.NotificationType,
) (*api.Notification, error) {
	settings := r.step.Settings.Notification(typ)
	if settings == nil {
		settings = &api.NotificationSettings{}
	}

	n := &api.Notification{
		Type:              typ,
		From:              settings.From,
		FromName:          settings.FromName,
		ReplyTo:           settings.ReplyTo,
		BCC:               settings.BCC,
		Subject:           settings.Subject,
		Message:           settings.Message,
		DisableAutoformat: settings.DisableAutoformat,
	}

	if n.From == "" {
		n.From = r.eng.site.Email
	}
	if n.FromName == "" {
		n.FromName = r.eng.site.Name
	}
	if n.Subject == "" {
		form, err := r.Form(ctx)
		if err != nil {
			return nil, err
		}
		n.Subject = fmt.Sprintf("%s: %s", form.Title, r.step.Name)
	}

	if settings.AttachDocument && r.eng.docs != nil {
		form, err := r.Form(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := r.Entry(ctx)
		if err != nil {
			return nil, err
		}
		doc, err := r.eng.docs.Generate(ctx, form, entry)
		if err != nil {
			slog.Warn("Document generation failed",
				log.StepID(r.step.ID),
				log.EntryID(r.entryID),
				log.Error(err))
		} else if doc != "" {
			n.Attachments = append(n.Attachments, doc)
		}
	}

	r.eng.hooks.applyNotification(r, n)
	return n, nil
}

// SendNotification delivers a notification to its recipient address at most
// once per invocation. A repeat for the same address is a logged no-op, not
// an error; the optional durable deduper extends the guarantee across
// concurrent invocations of the same step run
func (r *Run) SendNotification(
	ctx context.Context, n *api.Notification,
) error {
	addr := n.To
	if addr == "" {
		return nil
	}

	if r.notified.Contains(addr) {
		slog.Debug("Notification already sent this invocation",
			log.Recipient(addr),
			log.StepID(r.step.ID),
			log.EntryID(r.entryID))
		return nil
	}

	if r.eng.dedupe != nil {
		key := fmt.Sprintf("%s|%s|%s|%s",
			r.step.ID, r.entryID, n.Type, addr)
		first, err := r.eng.dedupe.MarkSent(ctx, key)
		if err != nil {
			return err
		}
		if !first {
			r.notified.Add(addr)
			slog.Debug("Notification already sent for this step run",
				log.Recipient(addr),
				log.StepID(r.step.ID))
			return nil
		}
	}

	form, err := r.Form(ctx)
	if err != nil {
		return err
	}
	entry, err := r.Entry(ctx)
	if err != nil {
		return err
	}

	if err := r.eng.transport.Deliver(ctx, n, form, entry); err != nil {
		return err
	}

	r.notified.Add(addr)
	r.emit(api.EventNotificationSent, api.Event{Recipient: addr})
	return nil
}

// SendNotifications delivers a notification to every resolvable address
// behind the given assignees. Role assignees fan out to each member address
func (r *Run) SendNotifications(
	ctx context.Context, assignees []*api.Assignee, n *api.Notification,
) error {
	for _, a := range assignees {
		for _, addr := range r.assigneeAddresses(a) {
			copied := *n
			copied.To = addr
			if err := r.SendNotification(ctx, &copied); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Run) assigneeAddresses(a *api.Assignee) []string {
	switch a.Type {
	case api.AssigneeEmail:
		return []string{a.ID}
	case api.AssigneeUser:
		if addr, ok := r.eng.directory.UserAddress(a.ID); ok {
			return []string{addr}
		}
	case api.AssigneeRole:
		return r.eng.directory.RoleAddresses(a.ID)
	}
	return nil
}

// MaybeSendAssigneeNotification sends the assignee notification to a single
// assignee when the type is enabled on the step
func (r *Run) MaybeSendAssigneeNotification(
	ctx context.Context, a *api.Assignee,
) error {
	settings := r.step.Settings.Notification(api.NotificationAssignee)
	if settings == nil || !settings.Enabled {
		return nil
	}
	n, err := r.Notification(ctx, api.NotificationAssignee)
	if err != nil {
		return err
	}
	return r.SendNotifications(ctx, []*api.Assignee{a}, n)
}

// MaybeSendNotification sends a type-scoped notification to all current
// assignees, short-circuiting when the type is disabled or nobody qualifies
func (r *Run) MaybeSendNotification(
	ctx context.Context, typ api.NotificationType,
) error {
	settings := r.step.Settings.Notification(typ)
	if settings == nil || !settings.Enabled {
		return nil
	}

	assignees, err := r.Assignees(ctx)
	if err != nil {
		return err
	}
	if len(assignees) == 0 {
		return nil
	}

	n, err := r.Notification(ctx, typ)
	if err != nil {
		return err
	}
	return r.SendNotifications(ctx, assignees, n)
}
