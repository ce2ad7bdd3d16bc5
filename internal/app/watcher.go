package app

import (
	"path/filepath"

	fsw "github.com/corey/botica/internal/adapters/fsnotify"
	"github.com/corey/botica/internal/config"
)

// reloadKeywords rebuilds the extraction vocabulary from the lexicon plus
// everything in the keyword store. A store read error keeps the current
// vocabulary.
func (a *App) reloadKeywords() {
	learned, err := a.Keywords.Load()
	if err != nil {
		a.Log.WithError(err).Error("load keywords")
		return
	}
	vocab := make([]string, 0, len(a.Lexicon.Vocabulary)+len(learned))
	vocab = append(vocab, a.Lexicon.Vocabulary...)
	vocab = append(vocab, learned...)
	a.Finder.Extractor().SetVocabulary(vocab)
	a.Log.WithField("learned", len(learned)).Debug("vocabulary loaded")
}

// watchKeywords reloads the vocabulary whenever the keyword file changes,
// so phrases added by hand or by another session take effect without a
// restart. Only the file backend is watched.
func (a *App) watchKeywords() error {
	s := a.Settings
	if s.Keywords.Backend != config.BackendFile || !s.Keywords.Watch {
		return nil
	}
	w, err := fsw.NewWatcher()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(s.KeywordsPath())
	if err != nil {
		w.Stop()
		return err
	}
	if err := w.Watch(path, a.onKeywordsChanged); err != nil {
		w.Stop()
		return err
	}
	a.Watcher = w
	return nil
}

func (a *App) onKeywordsChanged(path string) {
	a.Log.WithField("path", path).Info("keyword file changed")
	a.reloadKeywords()
}
