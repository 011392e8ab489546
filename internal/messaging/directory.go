package messaging

import (
	"context"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/config"
	"farmhub/backend/internal/models"
	"farmhub/backend/internal/names"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Directory returns the conversations userID takes part in, most recently
// active first. Participant names are recomputed on every call:
//
//  1. the newest sender_name used on any message of the batch,
//  2. the profile's full name, or a name derived from its email,
//  3. a name derived from the auth provider's email,
//  4. the name cached on the conversation,
//  5. config.FallbackDisplayName.
func (s *Service) Directory(ctx context.Context, userID string) ([]models.Conversation, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	convs, err := s.Storage.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []models.Conversation{}, nil
	}

	convIDs := make([]string, 0, len(convs))
	var participantIDs []string
	for _, c := range convs {
		convIDs = append(convIDs, c.ID)
		participantIDs = append(participantIDs, c.ParticipantIDs...)
	}

	resolver := names.NewResolver()

	rows, err := s.Storage.RecentSenderNames(ctx, convIDs)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		resolver.Offer(row.SenderID, row.SenderName)
	}

	if err := s.offerProfiles(ctx, resolver, resolver.Pending(participantIDs)); err != nil {
		return nil, err
	}
	s.offerAuthEmails(ctx, resolver, resolver.Pending(participantIDs))

	unread, err := s.Storage.UnreadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range convs {
		c := &convs[i]
		fresh := make(pq.StringArray, len(c.ParticipantIDs))
		for j, id := range c.ParticipantIDs {
			fresh[j] = resolver.NameOr(id, c.NameAt(j), config.FallbackDisplayName)
		}
		c.ParticipantNames = fresh
		c.UnreadCount = unread[c.ID]
	}
	return convs, nil
}

// offerProfiles feeds full names, then email-derived names, from the
// profiles relation.
func (s *Service) offerProfiles(ctx context.Context, r *names.Resolver, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	profiles, err := s.Storage.ProfilesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if !r.Offer(p.ID, p.FullName) {
			r.Offer(p.ID, names.FromEmail(p.Email))
		}
	}
	return nil
}

// offerAuthEmails feeds email-derived names from the auth provider. The
// lookup is best effort: a failure leaves the identifiers to the cached name
// and the fallback.
func (s *Service) offerAuthEmails(ctx context.Context, r *names.Resolver, ids []string) {
	if len(ids) == 0 {
		return
	}
	emails, err := s.Storage.EmailsByIDs(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Int("ids", len(ids)).Msg("email lookup failed, using cached names")
		return
	}
	for _, id := range ids {
		r.Offer(id, names.FromEmail(emails[id]))
	}
}

// resolveName runs steps 2 and 3 of the chain for a single identifier and
// returns "" when neither knows a name.
func (s *Service) resolveName(ctx context.Context, userID string) (string, error) {
	r := names.NewResolver()
	if err := s.offerProfiles(ctx, r, []string{userID}); err != nil {
		return "", err
	}
	s.offerAuthEmails(ctx, r, r.Pending([]string{userID}))
	return r.Name(userID), nil
}
