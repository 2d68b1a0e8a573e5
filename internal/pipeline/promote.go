package pipeline

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"vodpack/internal/layout"
)

// previousDir holds, inside a staging directory, the renditions a run
// replaced until its manifest is written.
const previousDir = ".previous"

// promotion moves staged renditions into the asset tree and can undo it.
type promotion struct {
	layout  *layout.Layout
	assetID int64
	staging string
	moved   []promoted
}

type promoted struct {
	label  string
	backup string
}

func newPromotion(l *layout.Layout, assetID int64, staging string) *promotion {
	return &promotion{layout: l, assetID: assetID, staging: staging}
}

func (p *promotion) promote(label string) error {
	backup := filepath.Join(p.staging, previousDir, label)

	hadPrevious, err := layout.Swap(filepath.Join(p.staging, label), p.layout.RenditionDirFor(p.assetID, label), backup)
	if err != nil {
		return err
	}

	entry := promoted{label: label}
	if hadPrevious {
		entry.backup = backup
	}
	p.moved = append(p.moved, entry)

	return nil
}

// rollback moves the promoted renditions back to staging and restores the
// ones they replaced, newest first.
func (p *promotion) rollback(logger *log.Entry) {
	for i := len(p.moved) - 1; i >= 0; i-- {
		m := p.moved[i]
		dst := p.layout.RenditionDirFor(p.assetID, m.label)

		if err := os.Rename(dst, filepath.Join(p.staging, m.label)); err != nil {
			_ = os.RemoveAll(dst)
		}

		if m.backup == "" {
			continue
		}

		if err := os.Rename(m.backup, dst); err != nil {
			logger.WithError(err).WithField("rendition", m.label).Error("unable to restore previous rendition")
		}
	}

	p.moved = nil
}

// recoverPromotions restores renditions moved aside by a run that stopped
// before writing its manifest.
func (r *Runner) recoverPromotions(assetID int64, logger *log.Entry) {
	backups, err := filepath.Glob(filepath.Join(r.layout.StagingDirFor(assetID, "*"), previousDir, "*"))
	if err != nil {
		return
	}

	for _, backup := range backups {
		label := filepath.Base(backup)
		dst := r.layout.RenditionDirFor(assetID, label)
		logger := logger.WithFields(log.Fields{"rendition": label, "backup": backup})

		if err := os.RemoveAll(dst); err != nil {
			logger.WithError(err).Error("unable to recover interrupted promotion")
			continue
		}
		if err := os.Rename(backup, dst); err != nil {
			logger.WithError(err).Error("unable to recover interrupted promotion")
			continue
		}

		logger.Warn("restored rendition of an interrupted run")
	}
}
