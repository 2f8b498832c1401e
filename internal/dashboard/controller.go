// Package dashboard holds the task table's UI state: which row is selected,
// which overlay (edit, add, delete) is open, and the mirrored task list
// that is re-read from the store after every write.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"taskdash/internal/model"
)

var (
	ErrNoOverlay       = errors.New("no edit or add form is open")
	ErrNoSelection     = errors.New("no record selected for deletion")
	ErrMutationPending = errors.New("mutation already in flight")
)

// TaskStore is the remote data store the dashboard writes through.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, fields model.Fields) (model.Task, error)
	UpdateTask(ctx context.Context, fields model.Fields) (model.Task, error)
	DeleteTask(ctx context.Context, id model.TaskID) error
	CreateProject(ctx context.Context, fields model.Fields) (model.Project, error)
}

type Mode int

const (
	ModeIdle Mode = iota
	ModeEditing
	ModeAdding
	ModeDeleting
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeEditing:
		return "editing"
	case ModeAdding:
		return "adding"
	case ModeDeleting:
		return "deleting"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type MutationKind string

const (
	MutationCreateTask    MutationKind = "create_task"
	MutationUpdateTask    MutationKind = "update_task"
	MutationDeleteTask    MutationKind = "delete_task"
	MutationCreateProject MutationKind = "create_project"
)

// AddTarget decides what the "Add New" form creates.
type AddTarget string

const (
	AddProject AddTarget = "project"
	AddTask    AddTarget = "task"
)

func ParseAddTarget(s string) (AddTarget, error) {
	switch AddTarget(s) {
	case "", AddProject:
		return AddProject, nil
	case AddTask:
		return AddTask, nil
	default:
		return "", fmt.Errorf("unknown add target %q (want project or task)", s)
	}
}

// MutationError is a rejected write. The overlay that issued it stays open.
type MutationError struct {
	Kind MutationKind
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// State is a point-in-time copy of the controller's UI state.
type State struct {
	Mode       Mode
	Selected   *model.Task
	Pending    []MutationKind
	Err        string
	RefreshErr string
	TaskCount  int
}

func (s State) IsPending(kind MutationKind) bool {
	for _, k := range s.Pending {
		if k == kind {
			return true
		}
	}
	return false
}

type Options struct {
	AddTarget AddTarget
	Logger    *log.Logger
	// OnRefresh, when set, runs after each refresh that replaced the list.
	// Calls are serialized and arrive in refresh order; a list older than
	// one already delivered is skipped. It must not call Refresh.
	OnRefresh func(tasks []model.Task)
}

type Controller struct {
	store     TaskStore
	addTarget AddTarget
	logger    *log.Logger
	onRefresh func([]model.Task)

	mu       sync.Mutex
	mode     Mode
	selected *model.Task
	// overlay is bumped every time an overlay opens; a mutation only closes
	// the overlay it was submitted from.
	overlay uint64
	pending map[MutationKind]bool
	err     error

	tasks      []model.Task
	refreshSeq uint64
	appliedSeq uint64
	refreshErr error

	notifyMu    sync.Mutex
	notifiedSeq uint64
}

func NewController(store TaskStore, opts Options) *Controller {
	if opts.AddTarget == "" {
		opts.AddTarget = AddProject
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Controller{
		store:     store,
		addTarget: opts.AddTarget,
		logger:    opts.Logger,
		onRefresh: opts.OnRefresh,
		pending:   map[MutationKind]bool{},
	}
}

func (c *Controller) AddTarget() AddTarget { return c.addTarget }

func (c *Controller) openLocked(mode Mode, record *model.Task) {
	c.mode = mode
	c.selected = record
	c.err = nil
	c.overlay++
}

func (c *Controller) closeLocked() {
	c.mode = ModeIdle
	c.selected = nil
	c.err = nil
}

// Edit opens the edit form for record.
func (c *Controller) Edit(record model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(ModeEditing, &record)
}

// Delete opens the delete confirmation for record. Nothing is deleted until
// ConfirmDelete.
func (c *Controller) Delete(record model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(ModeDeleting, &record)
}

// AddNew opens the add form.
func (c *Controller) AddNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(ModeAdding, nil)
}

// Cancel closes whatever overlay is open without writing anything.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeIdle {
		return
	}
	c.closeLocked()
}

func (c *Controller) addKind() MutationKind {
	if c.addTarget == AddTask {
		return MutationCreateTask
	}
	return MutationCreateProject
}

// Save submits the open edit or add form and waits for the write to settle.
// On success the form closes and the list is refreshed; on failure the form
// stays open and the error is kept in State().Err.
func (c *Controller) Save(ctx context.Context, data model.Fields) error {
	c.mu.Lock()
	var kind MutationKind
	switch c.mode {
	case ModeEditing:
		kind = MutationUpdateTask
		if _, ok := data.TaskID(); !ok && c.selected != nil {
			data = data.WithTaskID(c.selected.ID)
		}
	case ModeAdding:
		kind = c.addKind()
	default:
		c.mu.Unlock()
		return ErrNoOverlay
	}
	overlay, err := c.beginLocked(kind)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.settle(ctx, kind, overlay, c.mutate(ctx, kind, data))
}

// ConfirmDelete deletes the selected record and waits for it to settle.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeDeleting || c.selected == nil {
		c.mu.Unlock()
		return ErrNoSelection
	}
	id := c.selected.ID
	overlay, err := c.beginLocked(MutationDeleteTask)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.settle(ctx, MutationDeleteTask, overlay, c.store.DeleteTask(ctx, id))
}

func (c *Controller) beginLocked(kind MutationKind) (uint64, error) {
	if c.pending[kind] {
		return 0, ErrMutationPending
	}
	c.pending[kind] = true
	return c.overlay, nil
}

func (c *Controller) mutate(ctx context.Context, kind MutationKind, data model.Fields) error {
	var err error
	switch kind {
	case MutationUpdateTask:
		_, err = c.store.UpdateTask(ctx, data)
	case MutationCreateTask:
		_, err = c.store.CreateTask(ctx, data)
	case MutationCreateProject:
		_, err = c.store.CreateProject(ctx, data)
	default:
		err = fmt.Errorf("unknown mutation %q", kind)
	}
	return err
}

func (c *Controller) settle(ctx context.Context, kind MutationKind, overlay uint64, err error) error {
	c.mu.Lock()
	delete(c.pending, kind)
	if err != nil {
		merr := &MutationError{Kind: kind, Err: err}
		if c.overlay == overlay && c.mode != ModeIdle {
			c.err = merr
		}
		c.mu.Unlock()
		c.logger.Printf("dashboard: %v", merr)
		return merr
	}
	if c.overlay == overlay {
		c.closeLocked()
	}
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		c.logger.Printf("dashboard: refresh after %s: %v", kind, err)
	}
	return nil
}

// Refresh re-reads the task list. When refreshes overlap, the one that
// started last wins; an older result arriving late is dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	tasks, err := c.store.ListTasks(ctx)

	c.mu.Lock()
	if seq < c.appliedSeq {
		c.mu.Unlock()
		return err
	}
	c.appliedSeq = seq
	if err != nil {
		c.refreshErr = err
		c.mu.Unlock()
		return err
	}
	c.refreshErr = nil
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.tasks = tasks
	c.mu.Unlock()

	c.notify(seq, tasks)
	return nil
}

func (c *Controller) notify(seq uint64, tasks []model.Task) {
	if c.onRefresh == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.notifiedSeq {
		return
	}
	c.notifiedSeq = seq
	c.onRefresh(append([]model.Task{}, tasks...))
}

// Watch refreshes once per signal until ctx ends or signals closes.
func (c *Controller) Watch(ctx context.Context, signals <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Printf("dashboard: refresh on change: %v", err)
			}
		}
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Mode:      c.mode,
		TaskCount: len(c.tasks),
	}
	if c.selected != nil {
		sel := *c.selected
		s.Selected = &sel
	}
	for k := range c.pending {
		s.Pending = append(s.Pending, k)
	}
	sort.Slice(s.Pending, func(i, j int) bool { return s.Pending[i] < s.Pending[j] })
	if c.err != nil {
		s.Err = c.err.Error()
	}
	if c.refreshErr != nil {
		s.RefreshErr = c.refreshErr.Error()
	}
	return s
}

// Tasks returns a copy of the mirrored list.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Task{}, c.tasks...)
}

// Find looks a row up in the mirrored list.
func (c *Controller) Find(id model.TaskID) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}
