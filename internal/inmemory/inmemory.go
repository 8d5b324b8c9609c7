// Package inmemory provides map-backed store implementations used by unit
// tests in place of the postgres repositories.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/fern/pkg/agent"
	"github.com/Ramsey-B/fern/pkg/models"
)

// ApiStore is a map-backed federated API store.
type ApiStore struct {
	mu    sync.Mutex
	order []string
	apis  map[string]models.FederatedApi
	Err   error
}

func NewApiStore() *ApiStore {
	return &ApiStore{apis: map[string]models.FederatedApi{}}
}

func (s *ApiStore) Get(ctx context.Context, id string) (*models.FederatedApi, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	api, ok := s.apis[id]
	if !ok {
		return nil, nil
	}
	return &api, nil
}

func (s *ApiStore) Create(ctx context.Context, api models.FederatedApi) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.apis[api.ID]; !ok {
		s.order = append(s.order, api.ID)
	}
	s.apis[api.ID] = api
	return nil
}

func (s *ApiStore) Update(ctx context.Context, api models.FederatedApi) error {
	return s.Create(ctx, api)
}

func (s *ApiStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.apis, id)
	return nil
}

func (s *ApiStore) FindByIntegration(ctx context.Context, integrationID string) ([]models.FederatedApi, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var found []models.FederatedApi
	for _, id := range s.order {
		api, ok := s.apis[id]
		if ok && api.IntegrationID == integrationID {
			found = append(found, api)
		}
	}
	return found, nil
}

func (s *ApiStore) CountByIntegration(ctx context.Context, integrationID string) (int64, error) {
	apis, err := s.FindByIntegration(ctx, integrationID)
	if err != nil {
		return 0, err
	}
	return int64(len(apis)), nil
}

// All returns every stored API in insertion order.
func (s *ApiStore) All() []models.FederatedApi {
	s.mu.Lock()
	defer s.mu.Unlock()
	apis := make([]models.FederatedApi, 0, len(s.apis))
	for _, id := range s.order {
		if api, ok := s.apis[id]; ok {
			apis = append(apis, api)
		}
	}
	return apis
}

// PlanStore is a map-backed federated plan store.
type PlanStore struct {
	mu    sync.Mutex
	order []string
	plans map[string]models.FederatedPlan
}

func NewPlanStore() *PlanStore {
	return &PlanStore{plans: map[string]models.FederatedPlan{}}
}

func (s *PlanStore) Get(ctx context.Context, id string) (*models.FederatedPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (s *PlanStore) Create(ctx context.Context, plan models.FederatedPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[plan.ID]; !ok {
		s.order = append(s.order, plan.ID)
	}
	s.plans[plan.ID] = plan
	return nil
}

func (s *PlanStore) Update(ctx context.Context, plan models.FederatedPlan) error {
	return s.Create(ctx, plan)
}

func (s *PlanStore) DeleteByApi(ctx context.Context, apiID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, plan := range s.plans {
		if plan.ApiID == apiID {
			delete(s.plans, id)
		}
	}
	return nil
}

func (s *PlanStore) All() []models.FederatedPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans := make([]models.FederatedPlan, 0, len(s.plans))
	for _, id := range s.order {
		if plan, ok := s.plans[id]; ok {
			plans = append(plans, plan)
		}
	}
	return plans
}

// PageStore is a map-backed documentation page store.
type PageStore struct {
	mu    sync.Mutex
	order []string
	pages map[string]models.DocumentationPage
}

func NewPageStore() *PageStore {
	return &PageStore{pages: map[string]models.DocumentationPage{}}
}

func (s *PageStore) GetByReferenceAndType(ctx context.Context, referenceID string, pageType models.PageType) (*models.DocumentationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		page, ok := s.pages[id]
		if ok && page.ReferenceID == referenceID && page.Type == pageType {
			return &page, nil
		}
	}
	return nil, nil
}

func (s *PageStore) Create(ctx context.Context, page models.DocumentationPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page.ID]; !ok {
		s.order = append(s.order, page.ID)
	}
	s.pages[page.ID] = page
	return nil
}

func (s *PageStore) Update(ctx context.Context, page models.DocumentationPage) error {
	return s.Create(ctx, page)
}

func (s *PageStore) FindByReference(ctx context.Context, referenceID string) ([]models.DocumentationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []models.DocumentationPage
	for _, id := range s.order {
		page, ok := s.pages[id]
		if ok && page.ReferenceID == referenceID {
			found = append(found, page)
		}
	}
	return found, nil
}

func (s *PageStore) DeleteByReference(ctx context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, page := range s.pages {
		if page.ReferenceID == referenceID {
			delete(s.pages, id)
		}
	}
	return nil
}

func (s *PageStore) All() []models.DocumentationPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]models.DocumentationPage, 0, len(s.pages))
	for _, id := range s.order {
		if page, ok := s.pages[id]; ok {
			pages = append(pages, page)
		}
	}
	return pages
}

// MembershipStore is a map-backed membership store.
type MembershipStore struct {
	mu          sync.Mutex
	memberships []models.Membership
}

func NewMembershipStore() *MembershipStore {
	return &MembershipStore{}
}

func (s *MembershipStore) Create(ctx context.Context, membership models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, membership)
	return nil
}

func (s *MembershipStore) DeleteByReference(ctx context.Context, referenceType, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.memberships[:0]
	for _, m := range s.memberships {
		if m.ReferenceType != referenceType || m.ReferenceID != referenceID {
			kept = append(kept, m)
		}
	}
	s.memberships = kept
	return nil
}

func (s *MembershipStore) All() []models.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Membership{}, s.memberships...)
}

// MetadataStore is a map-backed metadata store.
type MetadataStore struct {
	mu      sync.Mutex
	entries []models.Metadata
}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{}
}

func (s *MetadataStore) Seed(entries ...models.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
}

func (s *MetadataStore) DeleteByReference(ctx context.Context, referenceType, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ReferenceType != referenceType || e.ReferenceID != referenceID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *MetadataStore) All() []models.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Metadata{}, s.entries...)
}

// SubscriptionStore is a map-backed subscription store.
type SubscriptionStore struct {
	mu            sync.Mutex
	order         []string
	subscriptions map[string]models.Subscription
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subscriptions: map[string]models.Subscription{}}
}

func (s *SubscriptionStore) Seed(subscriptions ...models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range subscriptions {
		if _, ok := s.subscriptions[sub.ID]; !ok {
			s.order = append(s.order, sub.ID)
		}
		s.subscriptions[sub.ID] = sub
	}
}

func (s *SubscriptionStore) FindByApi(ctx context.Context, apiID string) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []models.Subscription
	for _, id := range s.order {
		sub, ok := s.subscriptions[id]
		if ok && sub.ApiID == apiID {
			found = append(found, sub)
		}
	}
	return found, nil
}

func (s *SubscriptionStore) Update(ctx context.Context, subscription models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[subscription.ID] = subscription
	return nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
	return nil
}

func (s *SubscriptionStore) All() []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]models.Subscription, 0, len(s.subscriptions))
	for _, id := range s.order {
		if sub, ok := s.subscriptions[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

// ApiKeyStore records key revocations per subscription.
type ApiKeyStore struct {
	mu      sync.Mutex
	Revoked map[string]time.Time
}

func NewApiKeyStore() *ApiKeyStore {
	return &ApiKeyStore{Revoked: map[string]time.Time{}}
}

func (s *ApiKeyStore) RevokeBySubscription(ctx context.Context, subscriptionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Revoked[subscriptionID] = at
	return nil
}

// AuditStore records audit entries in call order.
type AuditStore struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Create(ctx context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) All() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEntry{}, s.entries...)
}

// Events returns the recorded events for one reference in call order.
func (s *AuditStore) Events(referenceID string) []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []models.AuditEvent
	for _, entry := range s.entries {
		if entry.ReferenceID == referenceID {
			events = append(events, entry.Event)
		}
	}
	return events
}

// JobStore is a map-backed ingestion job store.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]models.IngestionJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: map[string]models.IngestionJob{}}
}

func (s *JobStore) Get(ctx context.Context, id string) (*models.IngestionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (s *JobStore) Create(ctx context.Context, job models.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *JobStore) Update(ctx context.Context, job models.IngestionJob) error {
	return s.Create(ctx, job)
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// IntegrationStore is a map-backed integration store.
type IntegrationStore struct {
	mu           sync.Mutex
	integrations map[string]models.Integration
}

func NewIntegrationStore() *IntegrationStore {
	return &IntegrationStore{integrations: map[string]models.Integration{}}
}

func (s *IntegrationStore) Seed(integrations ...models.Integration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, integration := range integrations {
		s.integrations[integration.ID] = integration
	}
}

func (s *IntegrationStore) Get(ctx context.Context, id string) (*models.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integration, ok := s.integrations[id]
	if !ok {
		return nil, nil
	}
	return &integration, nil
}

func (s *IntegrationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.integrations, id)
	return nil
}

func (s *IntegrationStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.integrations[id]
	return ok
}

// Indexer records index writes and removals.
type Indexer struct {
	mu           sync.Mutex
	Apis         map[string]models.FederatedApi
	Pages        map[string]models.DocumentationPage
	RemovedApis  []string
	RemovedPages []string
}

func NewIndexer() *Indexer {
	return &Indexer{
		Apis:  map[string]models.FederatedApi{},
		Pages: map[string]models.DocumentationPage{},
	}
}

func (i *Indexer) IndexApi(ctx context.Context, api models.FederatedApi) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Apis[api.ID] = api
	return nil
}

func (i *Indexer) IndexPage(ctx context.Context, page models.DocumentationPage) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Pages[page.ID] = page
	return nil
}

func (i *Indexer) RemoveApi(ctx context.Context, apiID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.Apis, apiID)
	i.RemovedApis = append(i.RemovedApis, apiID)
	return nil
}

func (i *Indexer) RemovePage(ctx context.Context, pageID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.Pages, pageID)
	i.RemovedPages = append(i.RemovedPages, pageID)
	return nil
}

// Notifier records emitted lifecycle events.
type Notifier struct {
	mu                  sync.Mutex
	IngestedApis        []string
	DeletedApis         []string
	ClosedSubscriptions []string
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) ApiIngested(ctx context.Context, info models.AuditInfo, api models.FederatedApi, isNew bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.IngestedApis = append(n.IngestedApis, api.ID)
}

func (n *Notifier) ApiDeleted(ctx context.Context, info models.AuditInfo, api models.FederatedApi) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.DeletedApis = append(n.DeletedApis, api.ID)
}

func (n *Notifier) SubscriptionClosed(ctx context.Context, info models.AuditInfo, subscription models.Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ClosedSubscriptions = append(n.ClosedSubscriptions, subscription.ID)
}

// Agent is a scripted integration agent.
type Agent struct {
	Apis     []models.ExternalApi
	ListErr  error
	CountErr error
	Health   agent.Status
}

func NewAgent(apis ...models.ExternalApi) *Agent {
	return &Agent{Apis: apis, Health: agent.StatusConnected}
}

func (a *Agent) ListApis(ctx context.Context, integrationID string) ([]models.ExternalApi, error) {
	if a.ListErr != nil {
		return nil, a.ListErr
	}
	return a.Apis, nil
}

func (a *Agent) CountApis(ctx context.Context, integrationID string) (int64, error) {
	if a.CountErr != nil {
		return 0, a.CountErr
	}
	return int64(len(a.Apis)), nil
}

func (a *Agent) Status(ctx context.Context, integrationID string) (agent.Status, error) {
	return a.Health, nil
}
