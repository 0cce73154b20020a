package chart

// Surface draws charts from emitted configuration. The core never renders itself.
type Surface interface {
	HasLiveHandle() bool
	UpdateSeriesAndOptions(u Update)
	SetInitialOptions(o Options)
}

// EmitKind tells which path a frame took to the surface.
type EmitKind string

const (
	EmitInitial EmitKind = "initial"
	EmitUpdate  EmitKind = "update"
)

// Emitter pushes a frame to a surface.
type Emitter interface {
	Emit(frame Frame, tooltip *Tooltip) EmitKind
}

// EmitterFor picks the emitter matching the surface state: an uninitialized
// surface gets the full configuration, a live one an in-place update.
func EmitterFor(surface Surface) Emitter {
	if surface.HasLiveHandle() {
		return liveEmitter{surface: surface}
	}
	return initialEmitter{surface: surface}
}

type initialEmitter struct {
	surface Surface
}

func (e initialEmitter) Emit(frame Frame, tooltip *Tooltip) EmitKind {
	e.surface.SetInitialOptions(InitialOptions(frame, tooltip))
	return EmitInitial
}

type liveEmitter struct {
	surface Surface
}

func (e liveEmitter) Emit(frame Frame, tooltip *Tooltip) EmitKind {
	e.surface.UpdateSeriesAndOptions(NewUpdate(frame, tooltip))
	return EmitUpdate
}
