package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"securepay/internal/domain"
	"securepay/internal/usecase"
)

const (
	msgPaymentProcessed = "Payment processed successfully"
	timestampLayout     = "2006-01-02T15:04:05.000Z07:00"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type authRequest struct {
	ClientID string `json:"clientId"`
}

type authResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

type paymentRequest struct {
	PayloadJWE string `json:"payload_jwe"`
}

type paymentResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
	Amount        any    `json:"amount"`
	ClientID      string `json:"clientId"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) handleAuth(c *gin.Context) {
	if s.issueUC == nil {
		s.writeError(c, opIssueToken, domain.NewProtocolError(domain.KindConfiguration, usecase.MsgConfiguration, domain.ErrKeyMissing))
		return
	}
	// A body that does not decode leaves clientId empty, which the
	// usecase rejects.
	var req authRequest
	_ = c.ShouldBindJSON(&req)

	resp, err := s.issueUC.Execute(c.Request.Context(), usecase.IssueTokenRequest{ClientID: req.ClientID})
	if err != nil {
		s.writeError(c, opIssueToken, err)
		return
	}
	s.metrics.observe(opIssueToken, outcomeSuccess)
	c.JSON(http.StatusOK, authResponse{
		Success:   true,
		Token:     resp.Token,
		ExpiresIn: resp.ExpiresIn,
	})
}

func (s *Server) handlePayment(c *gin.Context) {
	if s.submitUC == nil {
		s.writeError(c, opSubmitPayment, domain.NewProtocolError(domain.KindConfiguration, usecase.MsgConfiguration, domain.ErrKeyMissing))
		return
	}
	// The body is checked only after the credential, so decoding errors are
	// folded into a missing payload_jwe.
	var req paymentRequest
	_ = c.ShouldBindJSON(&req)

	result, err := s.submitUC.Execute(c.Request.Context(), usecase.SubmitPaymentRequest{
		Authorization: c.GetHeader("Authorization"),
		PayloadJWE:    req.PayloadJWE,
	})
	if err != nil {
		s.writeError(c, opSubmitPayment, err)
		return
	}
	s.metrics.observe(opSubmitPayment, outcomeSuccess)
	s.log.WithFields(logrus.Fields{
		"transaction_id": result.TransactionID,
		"client_id":      result.ClientID,
	}).Debug("payment processed")
	c.JSON(http.StatusOK, paymentResponse{
		Success:       true,
		Message:       msgPaymentProcessed,
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
		ClientID:      result.ClientID,
		Timestamp:     result.Timestamp.UTC().Format(timestampLayout),
	})
}

func (s *Server) handlePanic(c *gin.Context, recovered any) {
	s.log.WithFields(logrus.Fields{
		"path":  c.FullPath(),
		"panic": recovered,
	}).Error("handler panicked")
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: usecase.MsgInternal})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{Error: "Route not found"})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindClientRequest:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, operation string, err error) {
	kind := domain.KindOf(err)
	message := usecase.MsgInternal
	var perr *domain.ProtocolError
	if errors.As(err, &perr) && perr.Message != "" {
		message = perr.Message
	}
	s.metrics.observe(operation, kind.String())

	entry := s.log.WithFields(logrus.Fields{
		"operation": operation,
		"kind":      kind.String(),
	})
	switch kind {
	case domain.KindServerFault, domain.KindConfiguration:
		entry.WithError(err).Error("request failed")
	default:
		entry.WithField("reason", message).Info("request rejected")
	}

	c.JSON(statusForKind(kind), errorResponse{Error: message})
}
