// Package service builds and verifies verifiable presentations. A
// presentation bundles credentials under the holder's EdDSA signature so a
// relying party can check holder binding, freshness, and credential shape in
// one pass without touching the ledger.
package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	didmodels "anchorid/internal/did/models"
	"anchorid/internal/identity/keys"
	"anchorid/internal/platform/logger"
	vcmodels "anchorid/internal/vc/models"
	"anchorid/internal/vp/models"
	dErrors "anchorid/pkg/domain-errors"
	"anchorid/pkg/platform/sentinel"
)

// proofType tags JWS-based presentation proofs.
const proofType = "JsonWebSignature2020"

// Store persists presentation records.
type Store interface {
	Create(ctx context.Context, rec models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Record, error)
	SetVerification(ctx context.Context, id uuid.UUID, verified bool, at time.Time) error
}

// CredentialStore loads the credentials embedded in a presentation.
type CredentialStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]vcmodels.Record, error)
}

// DIDStore resolves the holder's DID record for signing and signature checks.
type DIDStore interface {
	FindByDID(ctx context.Context, did string) (didmodels.Record, error)
}

// Service builds and verifies presentations.
type Service struct {
	store  Store
	creds  CredentialStore
	dids   DIDStore
	log    *slog.Logger
	clock  func() time.Time
	tracer trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService builds a presentation service.
func NewService(store Store, creds CredentialStore, dids DIDStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		creds:  creds,
		dids:   dids,
		log:    logger.Discard(),
		clock:  time.Now,
		tracer: otel.Tracer("anchorid/vp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRequest describes a presentation to assemble and sign. Challenge
// defaults to a fresh uuid when the relying party did not supply one.
type BuildRequest struct {
	HolderDID     string
	CredentialIDs []uuid.UUID
	Challenge     string
	Domain        string
}

// proofClaims is the JWT payload the holder signs: the envelope hash plus the
// freshness parameters.
type proofClaims struct {
	PresentationHash string `json:"vp_hash"`
	Challenge        string `json:"challenge"`
	Domain           string `json:"domain,omitempty"`
	jwt.RegisteredClaims
}

// Build assembles the presentation envelope from stored credentials and signs
// it with the holder's key.
func (s *Service) Build(ctx context.Context, req BuildRequest) (models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "vp.Build",
		trace.WithAttributes(attribute.String("holder", req.HolderDID)))
	defer span.End()

	if req.HolderDID == "" {
		return models.Record{}, dErrors.New(dErrors.CodeValidation, "holder DID is required")
	}
	if len(req.CredentialIDs) == 0 {
		return models.Record{}, dErrors.New(dErrors.CodeValidation, "at least one credential is required")
	}

	holder, err := s.dids.FindByDID(ctx, req.HolderDID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.Newf(dErrors.CodeNotFound, "holder did %s not found", req.HolderDID)
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holder did")
	}
	if holder.Status != didmodels.StatusActive {
		return models.Record{}, dErrors.Newf(dErrors.CodeInvalidState, "holder did %s is %s", req.HolderDID, holder.Status)
	}
	priv, err := keys.PrivateKeyFromHex(holder.PrivateKey)
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode holder key")
	}

	now := s.clock()
	credRecords, err := s.creds.ListByIDs(ctx, req.CredentialIDs)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.Wrap(err, dErrors.CodeNotFound, "load credentials")
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credentials")
	}
	payloads := make([]vcmodels.Payload, 0, len(credRecords))
	for _, cr := range credRecords {
		if err := cr.Payload.ValidateStructure(now); err != nil {
			return models.Record{}, dErrors.Wrap(err, dErrors.CodeValidation, "credential "+cr.ID.String())
		}
		payloads = append(payloads, cr.Payload)
	}

	challenge := req.Challenge
	if challenge == "" {
		challenge = uuid.NewString()
	}

	id := uuid.New()
	env := models.NewEnvelope(id, req.HolderDID, payloads)
	hash, err := env.Hash()
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash presentation")
	}

	claims := proofClaims{
		PresentationHash: hash,
		Challenge:        challenge,
		Domain:           req.Domain,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   req.HolderDID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	jws, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign presentation")
	}
	env.Proof = &models.Proof{
		Type:               proofType,
		Created:            now.UTC(),
		VerificationMethod: req.HolderDID + "#key-1",
		Challenge:          challenge,
		Domain:             req.Domain,
		JWS:                jws,
	}

	rec := models.Record{
		ID:        id,
		HolderDID: req.HolderDID,
		Verifier:  req.Domain,
		Envelope:  env,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist presentation")
	}
	s.log.Info("presentation built", "presentation_id", id, "holder", req.HolderDID, "credentials", len(payloads))
	return rec, nil
}

// VerifyResult reports presentation validity with a human-readable reason
// when invalid.
type VerifyResult struct {
	Valid  bool
	Reason string
}

func invalid(reason string) VerifyResult {
	return VerifyResult{Valid: false, Reason: reason}
}

// Verify checks a presentation envelope: envelope shape, holder binding of
// the verification method, the EdDSA signature against the holder's
// registered key, the signed hash against the envelope content, and the
// structure of every embedded credential.
//
// Malformed input is an error; a well-formed envelope that fails a check is a
// non-error invalid result. Credential statuses are deliberately not checked
// here; relying parties verify each credential separately when they need
// revocation guarantees.
func (s *Service) Verify(ctx context.Context, env models.Envelope) (VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "vp.Verify",
		trace.WithAttributes(attribute.String("holder", env.Holder)))
	defer span.End()

	if err := validateEnvelope(env); err != nil {
		return VerifyResult{}, err
	}

	holder, err := s.dids.FindByDID(ctx, env.Holder)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.conclude(ctx, env, invalid("holder DID is not registered")), nil
		}
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holder did")
	}
	if holder.Status != didmodels.StatusActive {
		return s.conclude(ctx, env, invalid("holder DID is "+string(holder.Status))), nil
	}

	// The verification method must be a key the holder's document lists.
	method := findMethod(holder.Document, env.Proof.VerificationMethod)
	if method == nil {
		return s.conclude(ctx, env, invalid("verification method does not belong to the holder")), nil
	}
	pub, err := keys.PublicKeyFromHex(method.PublicKeyHex)
	if err != nil {
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode holder key")
	}

	res, err := s.checkProof(env, pub)
	if err != nil {
		return VerifyResult{}, err
	}
	if !res.Valid {
		return s.conclude(ctx, env, res), nil
	}

	now := s.clock()
	for _, cred := range env.VerifiableCredential {
		if err := cred.ValidateStructure(now); err != nil {
			return s.conclude(ctx, env, invalid("credential "+cred.ID+" is invalid: "+err.Error())), nil
		}
	}

	return s.conclude(ctx, env, VerifyResult{Valid: true}), nil
}

func validateEnvelope(env models.Envelope) error {
	hasType := false
	for _, t := range env.Type {
		if t == models.BaseType {
			hasType = true
		}
	}
	if !hasType {
		return dErrors.New(dErrors.CodeValidation, "presentation is missing the VerifiablePresentation type tag")
	}
	if env.Holder == "" {
		return dErrors.New(dErrors.CodeValidation, "presentation holder is required")
	}
	if env.Proof == nil || env.Proof.JWS == "" {
		return dErrors.New(dErrors.CodeValidation, "presentation proof is required")
	}
	if len(env.VerifiableCredential) == 0 {
		return dErrors.New(dErrors.CodeValidation, "presentation carries no credentials")
	}
	return nil
}

// checkProof parses the JWS with the holder's key and compares the signed
// hash and challenge against the envelope.
func (s *Service) checkProof(env models.Envelope, pub ed25519.PublicKey) (VerifyResult, error) {
	var claims proofClaims
	_, err := jwt.ParseWithClaims(env.Proof.JWS, &claims,
		func(*jwt.Token) (any, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
	)
	if err != nil {
		return invalid("proof signature is invalid"), nil
	}

	hash, err := env.Hash()
	if err != nil {
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash presentation")
	}
	if claims.PresentationHash != hash {
		return invalid("presentation content does not match the signed hash"), nil
	}
	if claims.Challenge != env.Proof.Challenge {
		return invalid("proof challenge does not match"), nil
	}
	if claims.Domain != env.Proof.Domain {
		return invalid("proof domain does not match"), nil
	}
	return VerifyResult{Valid: true}, nil
}

// conclude records the verification outcome on the stored presentation when
// one exists. Presentations verified from a bare envelope are not persisted.
func (s *Service) conclude(ctx context.Context, env models.Envelope, res VerifyResult) VerifyResult {
	id, err := envelopeID(env)
	if err != nil {
		return res
	}
	if err := s.store.SetVerification(ctx, id, res.Valid, s.clock()); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.log.Warn("recording presentation verification failed", "presentation_id", id, "error", err)
		}
	}
	return res
}

func envelopeID(env models.Envelope) (uuid.UUID, error) {
	const prefix = "urn:uuid:"
	if len(env.ID) <= len(prefix) {
		return uuid.UUID{}, errors.New("presentation id is not a urn:uuid")
	}
	return uuid.Parse(env.ID[len(prefix):])
}

func findMethod(doc keys.Document, methodID string) *keys.VerificationMethod {
	for i := range doc.VerificationMethod {
		if doc.VerificationMethod[i].ID == methodID {
			return &doc.VerificationMethod[i]
		}
	}
	return nil
}
