package server

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"mercator-hq/atrium/pkg/config"
	"mercator-hq/atrium/pkg/export"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/telemetry/health"
	"mercator-hq/atrium/pkg/telemetry/logging"
)

// routes registers every endpoint on a new mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	tel := s.deps.Config.Telemetry

	mux.HandleFunc("GET /resources", s.handleResources)
	mux.HandleFunc("GET /resources/{key}/export", s.handleExport)
	mux.HandleFunc("GET /resources/{key}/fields/{page}", s.handleFields)
	mux.HandleFunc("GET /notifications/{user}", s.handleNotifications)

	b := s.deps.Build
	mux.Handle("GET /version", health.VersionHandler(b.Version, b.Commit, b.BuildTime))

	if s.deps.Health != nil {
		mux.Handle(tel.Health.LivenessPath, s.deps.Health.LivenessHandler())
		mux.Handle(tel.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	}

	if s.deps.Metrics != nil && config.Bool(tel.Metrics.Enabled, true) {
		mux.Handle("GET "+tel.Metrics.Path, s.deps.Metrics.Handler())
	}

	if s.deps.Storage != nil && config.Bool(s.config.ServeStorage, true) {
		s.mountStorage(mux)
	}

	return mux
}

// mountStorage serves every disk below the path of its public URL. Disks
// without a URL path are not served.
func (s *Server) mountStorage(mux *http.ServeMux) {
	for _, disk := range s.deps.Storage.Disks() {
		base, err := s.deps.Storage.URLOf(disk, "")
		if err != nil {
			continue
		}
		u, err := url.Parse(base)
		if err != nil || strings.Trim(u.Path, "/") == "" {
			continue
		}
		root, err := s.deps.Storage.PathOf(disk, "")
		if err != nil {
			continue
		}

		prefix := "/" + strings.Trim(u.Path, "/")
		mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, http.FileServer(fileOnlyFS{http.Dir(root)})))
		s.logger.Debug("serving storage disk", "disk", disk, "path", prefix, "root", root)
	}
}

// fileOnlyFS hides directories so disk contents cannot be listed.
type fileOnlyFS struct {
	root http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

type resourceView struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	out := []resourceView{}
	for _, key := range s.deps.Registry.Keys() {
		res, err := s.deps.Registry.Lookup(key)
		if err != nil {
			continue
		}
		out = append(out, resourceView{Key: key, Title: res.Title()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Registry.Lookup(r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}

	if !s.queued() {
		if !s.exports.Acquire() {
			w.Header().Set("Retry-After", "1")
			s.writeError(w, r, http.StatusTooManyRequests,
				fmt.Errorf("too many concurrent exports (limit %d)", s.exports.Limit()))
			return
		}
		defer s.exports.Release()
	}

	export.NewHandler(export.DefaultLabel, s.exportOptions(r, res)...).ServeHTTP(w, r)
}

// queued reports whether exports go through the queue.
func (s *Server) queued() bool {
	return s.deps.Config.Export.Queue && s.deps.Dispatcher != nil
}

// exportOptions configures an export handler from the export settings
// and the requesting user.
func (s *Server) exportOptions(r *http.Request, res resource.Resource) []export.Option {
	cfg := s.deps.Config.Export

	opts := []export.Option{
		export.Resource(res),
		export.Disk(cfg.Disk),
		export.Dir(cfg.Dir),
		export.Delimiter(cfg.Delimiter),
		export.WithStorage(s.deps.Storage),
		export.WithProcessor(s.deps.Processor),
		export.NotifyUsers(recipients(cfg.NotifyUsers, logging.GetUser(r.Context()))...),
	}
	if strings.EqualFold(cfg.Format, string(export.FormatCSV)) {
		opts = append(opts, export.CSV())
	}
	if s.queued() {
		opts = append(opts, export.Queue(), export.WithDispatcher(s.deps.Dispatcher))
	}
	return opts
}

// recipients appends user to the configured recipients unless it is
// empty or already present.
func recipients(configured []string, user string) []string {
	out := slices.Clone(configured)
	if user != "" && !slices.Contains(out, user) {
		out = append(out, user)
	}
	return out
}

// fieldView is the JSON form of a resolved field.
type fieldView struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Kind      string            `json:"kind"`
	Column    string            `json:"column"`
	Group     string            `json:"group,omitempty"`
	Sortable  bool              `json:"sortable"`
	Outside   bool              `json:"outside,omitempty"`
	Relation  string            `json:"relation,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
	Condition *fields.Condition `json:"condition,omitempty"`
}

type fieldSetView struct {
	Resource string      `json:"resource"`
	Page     string      `json:"page"`
	Fields   []fieldView `json:"fields"`
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Registry.Lookup(r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}

	page, err := panel.ParsePageType(r.PathValue("page"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}

	set, err := resource.Resolve(res, page)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	out := fieldSetView{Resource: res.URIKey(), Page: string(page), Fields: []fieldView{}}
	for _, f := range set.OnlyFields(true).All() {
		v := fieldView{
			Name:     f.Name(),
			Label:    f.Label(),
			Kind:     f.Kind(),
			Column:   f.Column(),
			Group:    f.Group(),
			Sortable: f.IsSortable(),
			Outside:  f.IsOutside(),
			Relation: f.Relation(),
			Options:  f.Options(),
		}
		if cond, ok := f.Condition(); ok {
			v.Condition = &cond
		}
		out.Fields = append(out.Fields, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inbox == nil {
		writeJSON(w, http.StatusOK, []notify.Notification{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Inbox.List(r.PathValue("user")))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "status", code, "error", err)
	writeJSON(w, code, errorResponse{
		Error:     err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}
