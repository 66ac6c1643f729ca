package cmd

import (
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/session"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// run is one generated session, optionally recording into SQLite.
type run struct {
	session  *session.Session
	recorder datarecording.DataRecorder
	runInfo  *datarecording.RunRecorder
}

// startRun creates a session and generates its table from the settings.
func (o *options) startRun() (*run, error) {
	r := &run{}
	sessionOpts := []session.Option{
		session.WithLogger(o.logger),
		session.WithHook(hooking.NewLogHook(o.logger)),
	}

	if o.settings.Record != "" {
		r.recorder = datarecording.New(o.settings.Record)
		r.runInfo = datarecording.NewRunRecorder(r.recorder)
		r.runInfo.Start()

		sessionOpts = append(sessionOpts, session.WithHook(
			datarecording.NewTranslationRecorder(r.recorder)))
	}

	r.session = session.New(sessionOpts...)

	cfg := o.settings.Config()
	if err := r.session.Generate(cfg); err != nil {
		r.close()
		return nil, err
	}

	if r.runInfo != nil {
		r.runInfo.Set("Session", r.session.ID())
		r.runInfo.Set("Config", cfg.String())
	}

	return r, nil
}

func (r *run) close() error {
	if r.recorder == nil {
		return nil
	}

	r.runInfo.End()

	return r.recorder.Close()
}
