package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"tft-ladder/internal/config"
	"tft-ladder/internal/constants"
	"tft-ladder/internal/domain"
	"tft-ladder/internal/repository"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const (
	MonitorServiceName = "tft.monitor.v1.Monitor"
	MonitorPath        = "/" + MonitorServiceName + "/"

	ListRunsProcedure          = MonitorPath + "ListRuns"
	StaleRunsProcedure         = MonitorPath + "StaleRuns"
	GetRunProcedure            = MonitorPath + "GetRun"
	FreshnessProcedure         = MonitorPath + "Freshness"
	ListPlayersProcedure       = MonitorPath + "ListPlayers"
	PlayerMatchesProcedure     = MonitorPath + "PlayerMatches"
	MatchParticipantsProcedure = MonitorPath + "MatchParticipants"
)

// freshnessRuns is how many recent runs the freshness view includes.
const freshnessRuns = 3

// MonitorServer is the read-only view over the collector's store.
type MonitorServer struct {
	db      *sql.DB
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.HistoryRepository
	runs    *repository.RunRepository
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewMonitorServer(sqlDB *sql.DB, players *repository.PlayerRepository, matches *repository.MatchRepository, history *repository.HistoryRepository, runs *repository.RunRepository, cfg *config.Config, logger zerolog.Logger) *MonitorServer {
	return &MonitorServer{
		db:      sqlDB,
		players: players,
		matches: matches,
		history: history,
		runs:    runs,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register mounts the health check and every monitor procedure on mux.
func (s *MonitorServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.health)
	path, handler := s.Handler()
	mux.Handle(path, handler)
}

// Handler returns the Connect handler for the monitor service and the path
// prefix it serves. Every procedure accepts POST and, being read-only, GET.
func (s *MonitorServer) Handler() (string, http.Handler) {
	opts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithIdempotency(connect.IdempotencyNoSideEffects),
		connect.WithInterceptors(s.errorInterceptor()),
	}

	mux := http.NewServeMux()
	mux.Handle(ListRunsProcedure, connect.NewUnaryHandler(ListRunsProcedure, s.ListRuns, opts...))
	mux.Handle(StaleRunsProcedure, connect.NewUnaryHandler(StaleRunsProcedure, s.StaleRuns, opts...))
	mux.Handle(GetRunProcedure, connect.NewUnaryHandler(GetRunProcedure, s.GetRun, opts...))
	mux.Handle(FreshnessProcedure, connect.NewUnaryHandler(FreshnessProcedure, s.Freshness, opts...))
	mux.Handle(ListPlayersProcedure, connect.NewUnaryHandler(ListPlayersProcedure, s.ListPlayers, opts...))
	mux.Handle(PlayerMatchesProcedure, connect.NewUnaryHandler(PlayerMatchesProcedure, s.PlayerMatches, opts...))
	mux.Handle(MatchParticipantsProcedure, connect.NewUnaryHandler(MatchParticipantsProcedure, s.MatchParticipants, opts...))
	return MonitorPath, mux
}

func (s *MonitorServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *MonitorServer) ListRuns(ctx context.Context, req *connect.Request[ListRunsRequest]) (*connect.Response[RunsResponse], error) {
	runs, err := s.runs.RecentRuns(ctx, req.Msg.Limit)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RunsResponse{Runs: toRunViews(runs)}), nil
}

func (s *MonitorServer) StaleRuns(ctx context.Context, _ *connect.Request[StaleRunsRequest]) (*connect.Response[RunsResponse], error) {
	runs, err := s.runs.StaleRuns(ctx, s.cfg.StaleRunAfter)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RunsResponse{Runs: toRunViews(runs)}), nil
}

func (s *MonitorServer) GetRun(ctx context.Context, req *connect.Request[GetRunRequest]) (*connect.Response[RunView], error) {
	if req.Msg.ID <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	run, err := s.runs.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	view := toRunView(*run)
	return connect.NewResponse(&view), nil
}

func (s *MonitorServer) Freshness(ctx context.Context, _ *connect.Request[FreshnessRequest]) (*connect.Response[FreshnessView], error) {
	var view FreshnessView

	cutoff, ok, err := s.players.FreshnessCutoff(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		view.HasData = true
		view.LastUpdated = &cutoff
	}
	if view.Players, err = s.players.Count(ctx); err != nil {
		return nil, err
	}
	if view.Matches, err = s.matches.Count(ctx); err != nil {
		return nil, err
	}
	if view.Ledger, err = s.history.Count(ctx); err != nil {
		return nil, err
	}
	runs, err := s.runs.RecentRuns(ctx, freshnessRuns)
	if err != nil {
		return nil, err
	}
	view.LastRuns = toRunViews(runs)

	return connect.NewResponse(&view), nil
}

func (s *MonitorServer) ListPlayers(ctx context.Context, req *connect.Request[ListPlayersRequest]) (*connect.Response[PlayersResponse], error) {
	limit := req.Msg.Limit
	if limit <= 0 || limit > constants.MaxListLimit {
		limit = constants.DefaultListLimit
	}

	views := make([]PlayerView, 0, limit)
	if req.Msg.Tier != "" {
		for p, err := range s.players.ListByTier(ctx, req.Msg.Tier, limit) {
			if err != nil {
				return nil, err
			}
			views = append(views, toPlayerView(p))
			if len(views) == limit {
				break
			}
		}
	} else {
		players, err := s.players.ListTop(ctx, limit)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			views = append(views, toPlayerView(p))
		}
	}
	return connect.NewResponse(&PlayersResponse{Players: views}), nil
}

func (s *MonitorServer) PlayerMatches(ctx context.Context, req *connect.Request[PlayerMatchesRequest]) (*connect.Response[RecordsResponse], error) {
	if _, err := s.players.Get(ctx, req.Msg.Puuid); err != nil {
		return nil, err
	}
	records, err := s.history.ListRecentForPlayer(ctx, req.Msg.Puuid, req.Msg.Limit)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RecordsResponse{Records: toRecordViews(records)}), nil
}

func (s *MonitorServer) MatchParticipants(ctx context.Context, req *connect.Request[MatchParticipantsRequest]) (*connect.Response[ParticipantsView], error) {
	matchID := req.Msg.MatchID
	if _, err := s.matches.Get(ctx, matchID); err != nil {
		return nil, err
	}
	all, err := s.matches.Participants(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tracked, err := s.history.ListParticipants(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ParticipantsView{MatchID: matchID, All: all, Tracked: toRecordViews(tracked)}), nil
}

// errorInterceptor maps store errors onto Connect codes and logs failures.
func (s *MonitorServer) errorInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			res, err := next(ctx, req)
			if err == nil {
				return res, nil
			}
			cerr := toConnectError(err)

			log := zerolog.Ctx(ctx)
			if log.GetLevel() == zerolog.Disabled {
				log = &s.logger
			}
			procedure := req.Spec().Procedure
			switch cerr.Code() {
			case connect.CodeInternal, connect.CodeUnavailable:
				log.Error().Err(err).Str("procedure", procedure).Msg("request failed")
			default:
				log.Debug().Err(err).Str("procedure", procedure).Str("code", cerr.Code().String()).Msg("request rejected")
			}
			return nil, cerr
		}
	}
}

func toConnectError(err error) *connect.Error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	code := connect.CodeInternal
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, domain.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, domain.ErrTransient):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}
	return connect.NewError(code, err)
}
