package report

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/user"
)

type (
	ParentLister interface {
		QueryParents(ctx context.Context) ([]user.User, error)
	}

	ChildLister interface {
		QueryByParent(ctx context.Context, parentID string) ([]participant.Participant, error)
	}

	DigestChild struct {
		Name          string
		SkillLevel    participant.SkillLevel
		Total         int
		Completed     int
		CompletedWeek int
	}

	DigestData struct {
		ParentName string
		Children   []DigestChild
	}

	DigestResult struct {
		Sent    int
		Skipped int
	}

	// Digest emails every parent the weekly progress of their children.
	Digest struct {
		parents  ParentLister
		children ChildLister
		repo     Repository
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewDigest(parents ParentLister, children ChildLister, repo Repository, mailSvc core.EmailService, logger core.Logger) *Digest {
	return &Digest{parents: parents, children: children, repo: repo, mailSvc: mailSvc, logger: logger}
}

// Run sends one email per parent having at least one child. Parents without children are skipped.
func (d *Digest) Run(ctx context.Context) (DigestResult, error) {
	var res DigestResult
	since := NowFunc().UTC().AddDate(0, 0, -7)

	parents, err := d.parents.QueryParents(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying parents")
	}

	msgs := make([]*core.EmailMessage, 0, len(parents))
	for _, parent := range parents {
		kids, err := d.children.QueryByParent(ctx, parent.ID)
		if err != nil {
			return res, errors.Wrap(err, "querying children")
		}
		if len(kids) == 0 || parent.Email == "" {
			res.Skipped++
			continue
		}

		data := DigestData{ParentName: parent.Name, Children: make([]DigestChild, 0, len(kids))}
		for _, kid := range kids {
			totals, err := d.repo.ChildTotals(ctx, kid.ID, since)
			if err != nil {
				return res, errors.Wrap(err, "getting child totals")
			}
			data.Children = append(data.Children, DigestChild{
				Name:          kid.Name,
				SkillLevel:    kid.SkillLevel,
				Total:         totals.Total,
				Completed:     totals.Completed,
				CompletedWeek: totals.CompletedRecently,
			})
		}

		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
			Subject:      "Weekly progress report",
			TemplateName: "weekly_digest",
			TemplateData: data,
		})
		res.Sent++
	}

	if len(msgs) > 0 {
		d.mailSvc.SendMessages(msgs...)
	}
	d.logger.Info(fmt.Sprintf("weekly digest: %d sent, %d skipped", res.Sent, res.Skipped))
	return res, nil
}
