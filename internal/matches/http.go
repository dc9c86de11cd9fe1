package matches

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/xaitan80/X-Cricket/internal/backend"
	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

// Deps is what the scorecard routes need. Token and UserID may be nil, in
// which case every caller is anonymous.
type Deps struct {
	Repo      *Repo
	Backend   backend.Backend
	Submitter *scorecard.Submitter
	Hub       *Hub
	Options   scorecard.Options
	Token     func(*gin.Context) string
	UserID    func(*gin.Context) string
	Log       hclog.Logger
}

// inputError marks a failure caused by the request rather than the server.
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return inputError{err}
}

func (d Deps) session(c *gin.Context) backend.Session {
	tok := ""
	if d.Token != nil {
		tok = d.Token(c)
	}
	return d.Backend.Session(tok)
}

func (d Deps) user(c *gin.Context) string {
	if d.UserID == nil {
		return ""
	}
	return d.UserID(c)
}

func (d Deps) view(c *gin.Context, dr Draft, f *scorecard.Form) draftView {
	return toView(dr, f, d.Submitter.State(dr.ID))
}

func matchID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return 0, false
	}
	return id, true
}

// inningsIndex reads :n, which is 1 or 2 in URLs.
func inningsIndex(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || (n != 1 && n != 2) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "innings must be 1 or 2"})
		return 0, false
	}
	return n - 1, true
}

func rowIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid row index"})
		return 0, false
	}
	return i, true
}

func (d Deps) draftError(c *gin.Context, err error) {
	var in inputError
	switch {
	case errors.Is(err, ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.As(err, &in):
		c.JSON(http.StatusBadRequest, gin.H{"error": in.Error()})
	default:
		d.Log.Error("draft store", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (d Deps) backendError(c *gin.Context, err error) {
	if errors.Is(err, backend.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	d.Log.Warn("backend read failed", "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": scorecard.DescribeError(err)})
}

// hidden rejects validate and submit while the scorecard section is not shown
// yet, since the form has no submit button in that state.
func hidden(c *gin.Context, f *scorecard.Form) bool {
	if f.ShowRest() {
		return false
	}
	c.JSON(http.StatusConflict, gin.H{"error": "Choose which team batted first before submitting."})
	return true
}

// submitStatus maps a submission failure to an HTTP status.
func submitStatus(err error) int {
	if errors.Is(err, scorecard.ErrSubmitting) {
		return http.StatusConflict
	}
	var se *scorecard.SubmitError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case scorecard.KindValidation:
		return http.StatusUnprocessableEntity
	case scorecard.KindSession:
		return http.StatusUnauthorized
	case scorecard.KindUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func submitMessage(err error) string {
	var se *scorecard.SubmitError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

type rowUpdateReq struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type rolesReq struct {
	Captain *int `json:"captain"`
	Keeper  *int `json:"keeper"`
}

type draftListItem struct {
	ID        string          `json:"id"`
	Phase     scorecard.Phase `json:"phase"`
	CreatedBy string          `json:"created_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ----- Routes -----

func RegisterRoutes(r *gin.Engine, d Deps, protect gin.HandlerFunc) {
	if d.Log == nil {
		d.Log = hclog.NewNullLogger()
	}
	api := r.Group("/api")
	{
		api.GET("/matches/:id", func(c *gin.Context) {
			id, ok := matchID(c)
			if !ok {
				return
			}
			page, err := LoadPage(c.Request.Context(), d.session(c), id)
			if err != nil {
				d.backendError(c, err)
				return
			}
			c.JSON(http.StatusOK, page)
		})

		api.GET("/matches/:id/drafts", func(c *gin.Context) {
			id, ok := matchID(c)
			if !ok {
				return
			}
			list, err := d.Repo.ListByMatch(c.Request.Context(), id)
			if err != nil {
				d.draftError(c, err)
				return
			}
			out := make([]draftListItem, 0, len(list))
			for _, dr := range list {
				out = append(out, draftListItem{ID: dr.ID, Phase: scorecard.Phase(dr.Phase), CreatedBy: sval(dr.CreatedBy), UpdatedAt: dr.UpdatedAt})
			}
			c.JSON(http.StatusOK, out)
		})

		api.POST("/matches/:id/drafts", attachProtect(protect, func(c *gin.Context) {
			id, ok := matchID(c)
			if !ok {
				return
			}
			ov, err := d.session(c).MatchOverview(c.Request.Context(), id)
			if err != nil {
				d.backendError(c, err)
				return
			}
			f := scorecard.NewForm(id, formOverview(ov))
			dr, err := d.Repo.Create(c.Request.Context(), f, d.user(c))
			if err != nil {
				d.draftError(c, err)
				return
			}
			d.Log.Info("draft opened", "draft", dr.ID, "match", id)
			c.JSON(http.StatusCreated, d.view(c, dr, f))
		}))

		api.GET("/drafts/:id", func(c *gin.Context) {
			dr, f, err := d.Repo.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			c.JSON(http.StatusOK, d.view(c, dr, f))
		})

		api.DELETE("/drafts/:id", attachProtect(protect, func(c *gin.Context) {
			if err := d.Repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
				d.draftError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		}))

		// Body is {"field": "value", ...}. Fields are applied in name order;
		// the first bad one rejects the whole update.
		api.PATCH("/drafts/:id/summary", attachProtect(protect, func(c *gin.Context) {
			var req map[string]string
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
				return
			}
			dr, f, err := d.Repo.Update(c.Request.Context(), c.Param("id"), func(f *scorecard.Form) error {
				for _, k := range slices.Sorted(maps.Keys(req)) {
					if err := f.SetSummaryField(k, req[k]); err != nil {
						return invalid(err)
					}
				}
				return nil
			})
			if err != nil {
				d.draftError(c, err)
				return
			}
			c.JSON(http.StatusOK, d.view(c, dr, f))
		}))

		api.PATCH("/drafts/:id/innings/:n/batting/:idx", attachProtect(protect, func(c *gin.Context) {
			d.updateRow(c, func(card *scorecard.InningsCard, i int, req rowUpdateReq) error {
				return card.UpdateBatting(i, req.Field, req.Value)
			})
		}))

		api.PATCH("/drafts/:id/innings/:n/bowling/:idx", attachProtect(protect, func(c *gin.Context) {
			d.updateRow(c, func(card *scorecard.InningsCard, i int, req rowUpdateReq) error {
				return card.UpdateBowling(i, req.Field, req.Value)
			})
		}))

		// Appending at the cap is not an error; the row count just stays put.
		api.POST("/drafts/:id/innings/:n/batting", attachProtect(protect, func(c *gin.Context) {
			d.editCard(c, func(card *scorecard.InningsCard) error { card.AppendBatting(); return nil })
		}))

		api.POST("/drafts/:id/innings/:n/bowling", attachProtect(protect, func(c *gin.Context) {
			d.editCard(c, func(card *scorecard.InningsCard) error { card.AppendBowling(); return nil })
		}))

		// Captain and keeper are row indices; -1 clears, a missing key leaves it alone.
		api.PUT("/drafts/:id/innings/:n/roles", attachProtect(protect, func(c *gin.Context) {
			var req rolesReq
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
				return
			}
			d.editCard(c, func(card *scorecard.InningsCard) error {
				if req.Captain != nil {
					if err := card.SetCaptain(*req.Captain); err != nil {
						return err
					}
				}
				if req.Keeper != nil {
					if err := card.SetKeeper(*req.Keeper); err != nil {
						return err
					}
				}
				return nil
			})
		}))

		// Import a batting and/or bowling table from CSV or XLSX into one innings.
		api.POST("/drafts/:id/innings/:n/import", attachProtect(protect, func(c *gin.Context) {
			n, ok := inningsIndex(c)
			if !ok {
				return
			}
			if err := c.Request.ParseMultipartForm(12 << 20); err != nil { // 12MB
				c.JSON(http.StatusBadRequest, gin.H{"error": "multipart too large"})
				return
			}
			fh, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
				return
			}

			imp, err := parseImport(fh, n+1)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			dropped := 0
			dr, f, err := d.Repo.Update(c.Request.Context(), c.Param("id"), func(f *scorecard.Form) error {
				card, err := f.Card(n)
				if err != nil {
					return invalid(err)
				}
				dropped = applyImport(card, imp)
				return nil
			})
			if err != nil {
				d.draftError(c, err)
				return
			}
			d.Log.Info("scorecard imported", "draft", dr.ID, "innings", n+1, "batting", len(imp.Batting), "bowling", len(imp.Bowling), "dropped", dropped)
			c.JSON(http.StatusOK, gin.H{
				"batting": len(imp.Batting), "bowling": len(imp.Bowling), "dropped": dropped,
				"draft": d.view(c, dr, f),
			})
		}))

		// Dry run: the first validation message, or the payload that would be sent.
		api.POST("/drafts/:id/validate", attachProtect(protect, func(c *gin.Context) {
			_, f, err := d.Repo.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			if hidden(c, f) {
				return
			}
			p, err := scorecard.Prepare(f, d.Options)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"payload": p})
		}))

		api.POST("/drafts/:id/submit", attachProtect(protect, func(c *gin.Context) {
			ctx := c.Request.Context()
			dr, f, err := d.Repo.Get(ctx, c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			if hidden(c, f) {
				return
			}

			res, err := d.Submitter.Submit(ctx, d.session(c), dr.ID, f)
			d.finish(c, dr, "full", res, err)
		}))

		// Resume a submission whose match data committed but whose scorecard did not.
		api.POST("/drafts/:id/submit/scorecard", attachProtect(protect, func(c *gin.Context) {
			ctx := c.Request.Context()
			dr, _, err := d.Repo.Get(ctx, c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			phase, p, err := d.Repo.StoredPayload(ctx, dr.ID)
			if err != nil {
				d.draftError(c, err)
				return
			}
			if phase != scorecard.PhaseMatchData || p == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "no match data submission to resume", "phase": phase})
				return
			}
			res, err := d.Submitter.ResubmitScorecard(ctx, d.session(c), dr.ID, *p)
			d.finish(c, dr, "scorecard", res, err)
		}))

		api.GET("/drafts/:id/scorecard.csv", func(c *gin.Context) {
			dr, f, err := d.Repo.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			var innings []int
			if q := c.Query("innings"); q != "" {
				n, err := strconv.Atoi(q)
				if err != nil || (n != 1 && n != 2) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "innings must be 1 or 2"})
					return
				}
				innings = append(innings, n)
			}

			filename := fmt.Sprintf("scorecard_%d_%s.csv", dr.MatchID, time.Now().Format("2006-01-02"))
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Header("Content-Disposition", "attachment; filename="+filename)
			if err := writeScorecardCSV(c.Writer, scorecard.Assemble(f), innings...); err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
		})

		api.GET("/drafts/:id/attempts", func(c *gin.Context) {
			list, err := d.Repo.Attempts(c.Request.Context(), c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			c.JSON(http.StatusOK, list)
		})

		api.GET("/drafts/:id/events", func(c *gin.Context) {
			dr, _, err := d.Repo.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				d.draftError(c, err)
				return
			}
			d.Hub.Serve(c, dr.ID)
		})
	}
}

// updateRow runs a {field, value} edit against row :idx of innings :n.
func (d Deps) updateRow(c *gin.Context, apply func(*scorecard.InningsCard, int, rowUpdateReq) error) {
	i, ok := rowIndex(c)
	if !ok {
		return
	}
	var req rowUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field is required"})
		return
	}
	d.editCard(c, func(card *scorecard.InningsCard) error { return apply(card, i, req) })
}

// editCard loads the draft, applies fn to innings :n and saves it.
func (d Deps) editCard(c *gin.Context, fn func(*scorecard.InningsCard) error) {
	n, ok := inningsIndex(c)
	if !ok {
		return
	}
	dr, f, err := d.Repo.Update(c.Request.Context(), c.Param("id"), func(f *scorecard.Form) error {
		card, err := f.Card(n)
		if err != nil {
			return invalid(err)
		}
		return invalid(fn(card))
	})
	if err != nil {
		d.draftError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.view(c, dr, f))
}

// finish records the attempt and writes the response. A complete submission
// removes the draft; one that stopped after the match data keeps the payload
// for the scorecard retry.
func (d Deps) finish(c *gin.Context, dr Draft, kind string, res scorecard.Result, err error) {
	ctx := c.Request.Context()
	a := Attempt{DraftID: dr.ID, MatchID: dr.MatchID, Kind: kind, Phase: string(res.Phase), OK: err == nil}

	if err != nil {
		a.Message = submitMessage(err)
		if !errors.Is(err, scorecard.ErrSubmitting) {
			if rerr := d.Repo.RecordAttempt(ctx, a); rerr != nil {
				d.Log.Error("record attempt", "draft", dr.ID, "error", rerr)
			}
		}
		if res.Phase == scorecard.PhaseMatchData {
			if perr := d.Repo.SetPhase(ctx, dr.ID, res.Phase, &res.Payload); perr != nil {
				d.Log.Error("store partial submission", "draft", dr.ID, "error", perr)
			}
		}
		c.JSON(submitStatus(err), gin.H{"error": a.Message, "phase": res.Phase})
		return
	}

	a.Message = res.Message
	if rerr := d.Repo.RecordAttempt(ctx, a); rerr != nil {
		d.Log.Error("record attempt", "draft", dr.ID, "error", rerr)
	}
	if derr := d.Repo.Delete(ctx, dr.ID); derr != nil {
		d.Log.Error("discard submitted draft", "draft", dr.ID, "error", derr)
	}
	c.JSON(http.StatusOK, res)
}

// attachProtect conditionally wraps handlers with the given protect middleware for mutating routes.
// We keep read routes public.
func attachProtect(protect gin.HandlerFunc, h gin.HandlerFunc) gin.HandlerFunc {
	if protect == nil {
		return h
	}
	return func(c *gin.Context) {
		protect(c)
		if c.IsAborted() {
			return
		}
		h(c)
	}
}

func sval(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
