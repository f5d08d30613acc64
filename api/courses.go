package api

import "net/http"

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.svc.CourseAnalytics(r.Context())
	if err != nil {
		s.logger.Error("course analytics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_failed", "failed to read the course catalog")
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, analytics)
}
