package ballot

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//===========================================================================
// Request and Response Types
//===========================================================================

// CreateElectionRequest is the JSON body of POST /v1/elections.
type CreateElectionRequest struct {
	Title       string    `json:"title"`
	Department  string    `json:"department"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// AddCandidateRequest is the JSON body of POST /v1/elections/:id/candidates.
type AddCandidateRequest struct {
	Name string `json:"name"`
}

// VoteRequest is the JSON body of POST /v1/elections/:id/votes.
type VoteRequest struct {
	CandidateID uint64 `json:"candidate_id"`
}

//===========================================================================
// Server
//===========================================================================

// NewServer creates the HTTP API surface over a ballot service. The server
// owns the service lifecycle: Serve runs the event stream alongside the
// listener and shuts both down together.
func NewServer(service *Service) (*Server, error) {
	if service.config.Secret == "" {
		return nil, Errorf(InvalidInput, "a signing secret is required to serve the API")
	}

	if service.config.GetLogLevel() > 0 {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{service: service}
	server.routes()
	return server, nil
}

// Server exposes the ledger operations as a JSON API. Every route other than
// the status endpoint requires a bearer identity token; the engine decides
// authorization, the server only resolves identity.
type Server struct {
	service *Service
	router  *gin.Engine
	http    *http.Server
}

// routes configures the API surface on the gin router.
func (s *Server) routes() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())

	s.router.GET("/v1/status", s.status)

	v1 := s.router.Group("/v1", Authenticate(s.service.config.Secret))
	{
		v1.POST("/elections", s.createElection)
		v1.GET("/elections/:id", s.getElection)
		v1.POST("/elections/:id/candidates", s.addCandidate)
		v1.GET("/elections/:id/candidates/:candidate", s.getCandidate)
		v1.POST("/elections/:id/votes", s.vote)
		v1.POST("/elections/:id/close", s.closeElection)
		v1.GET("/elections/:id/status", s.electionStatus)
		v1.GET("/elections/:id/ballot", s.hasVoted)
		v1.POST("/admins/:identity", s.addAdmin)
		v1.DELETE("/admins/:identity", s.removeAdmin)
		v1.GET("/history", s.history)
	}
}

// Serve runs the event stream and the HTTP listener until interrupted, the
// configured uptime elapses, or a fatal error occurs, then shuts both down,
// dumping metrics if a metrics path is configured.
func (s *Server) Serve() error {
	// Run the event stream loop in its own thread
	echan := make(chan error, 1)
	go func() {
		if err := s.service.Listen(); err != nil {
			echan <- err
		}
	}()

	s.http = &http.Server{Addr: s.service.config.BindAddr, Handler: s.router}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			echan <- err
		}
	}()
	log.Info().Str("addr", s.service.config.BindAddr).Msg("listening for requests")

	// Shutdown on interrupt or when the configured uptime has elapsed.
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)

	var uptime <-chan time.Time
	if s.service.config.Uptime != "" {
		duration, err := s.service.config.GetUptime()
		if err != nil {
			return err
		}
		uptime = time.After(duration)
	}

	var err error
	select {
	case err = <-echan:
	case <-ctrlc:
		log.Info().Msg("interrupt received, shutting down")
	case <-uptime:
		log.Info().Msg("uptime limit reached, shutting down")
	}

	if serr := s.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// Router exposes the configured handler, primarily for tests that exercise
// the API surface without binding a socket.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown gracefully stops the HTTP listener and closes the event stream.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}

	if cerr := s.service.Close(); cerr != nil && err == nil {
		err = cerr
	}

	if path := s.service.config.Metrics; path != "" {
		name, _ := s.service.config.GetName()
		if merr := s.service.metrics.Dump(path, map[string]interface{}{"name": name}); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

//===========================================================================
// Handlers
//===========================================================================

func (s *Server) status(c *gin.Context) {
	name, _ := s.service.config.GetName()
	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"version":   PackageVersion,
		"elections": s.service.registry.Count(),
		"metrics":   s.service.metrics.String(),
	})
}

func (s *Server) createElection(c *gin.Context) {
	var req CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.service.CreateElection(
		identity(c), req.Title, req.Department, req.Description, req.StartTime, req.EndTime,
	)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"election_id": id})
}

func (s *Server) getElection(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	info, err := s.service.GetElection(id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) addCandidate(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	var req AddCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidateID, err := s.service.AddCandidate(identity(c), id, req.Name)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"election_id": id, "candidate_id": candidateID})
}

func (s *Server) getCandidate(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	candidateID, err := param(c, "candidate")
	if err != nil {
		abort(c, err)
		return
	}

	candidate, err := s.service.GetCandidate(id, candidateID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (s *Server) vote(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.service.Vote(identity(c), id, req.CandidateID); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"election_id": id, "candidate_id": req.CandidateID})
}

func (s *Server) closeElection(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	if err := s.service.CloseElection(identity(c), id); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"election_id": id, "status": Closed.String()})
}

func (s *Server) electionStatus(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	status, err := s.service.ElectionStatus(id)
	if err != nil {
		abort(c, err)
		return
	}

	active, _ := s.service.IsElectionActive(id)
	c.JSON(http.StatusOK, gin.H{
		"election_id": id,
		"status":      status.String(),
		"active":      active,
	})
}

func (s *Server) hasVoted(c *gin.Context) {
	id, err := param(c, "id")
	if err != nil {
		abort(c, err)
		return
	}

	voted, err := s.service.HasUserVoted(id, identity(c))
	if err != nil {
		abort(c, err)
		return
	}

	active, _ := s.service.IsElectionActive(id)
	status, _ := s.service.ElectionStatus(id)
	c.JSON(http.StatusOK, gin.H{
		"election_id": id,
		"voted":       voted,
		"active":      active,
		"status":      status.String(),
	})
}

func (s *Server) addAdmin(c *gin.Context) {
	if err := s.service.AddAdmin(identity(c), c.Param("identity")); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": c.Param("identity")})
}

func (s *Server) removeAdmin(c *gin.Context) {
	if err := s.service.RemoveAdmin(identity(c), c.Param("identity")); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("identity")})
}

func (s *Server) history(c *gin.Context) {
	voter := identity(c)
	c.JSON(http.StatusOK, gin.H{
		"voter":       voter,
		"total_votes": s.service.GetUserTotalVotes(voter),
		"history":     s.service.GetUserVoteHistory(voter),
	})
}

//===========================================================================
// Handler Helpers
//===========================================================================

// identity returns the authenticated identity set by the middleware.
func identity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// param parses a numeric path parameter; unparseable ids are reported the
// same as unknown ones.
func param(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, Errorf(NotFound, "no such %s '%s'", name, c.Param(name))
	}
	return id, nil
}

// abort writes the error to the response with the HTTP status matching its
// kind.
func abort(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var code int
	switch e.Kind {
	case Unauthorized, SelfRemovalDenied:
		code = http.StatusForbidden
	case NotFound:
		code = http.StatusNotFound
	case InvalidInput, InvalidSchedule, InvalidCandidate:
		code = http.StatusBadRequest
	default:
		// Lifecycle conflicts: NotStarted, Ended, AlreadyVoted,
		// ElectionClosed, AlreadyClosed, StillActive
		code = http.StatusConflict
	}
	c.JSON(code, gin.H{"error": e.Error(), "kind": e.Kind.String()})
}
