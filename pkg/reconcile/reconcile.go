package reconcile

import (
	"context"

	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/inventory"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// Outcome classifies what one candidate did to the remote state.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
)

// Reconciler drives candidates through normalization, identity resolution,
// field merging and the final upsert.
type Reconciler struct {
	session *inventory.Session

	statusIDs StatusIDs
	ouTable   *clean.OUTable

	defaultModelID        int
	defaultCategoryID     int
	defaultFieldsetID     int
	defaultManufacturerID int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStatusIDs overrides the lifecycle status-label ids.
func WithStatusIDs(ids StatusIDs) Option {
	return func(r *Reconciler) { r.statusIDs = ids }
}

// WithOUTable installs the directory-path lookup table used to derive
// department and lab from a candidate's organizational unit.
func WithOUTable(t *clean.OUTable) Option {
	return func(r *Reconciler) { r.ouTable = t }
}

// WithDefaultModel sets the model id used when a candidate names no model.
func WithDefaultModel(id int) Option {
	return func(r *Reconciler) { r.defaultModelID = id }
}

// WithDefaultCategory sets the category id for models created on the fly.
func WithDefaultCategory(id int) Option {
	return func(r *Reconciler) { r.defaultCategoryID = id }
}

// WithDefaultFieldset sets the fieldset id for models created on the fly.
func WithDefaultFieldset(id int) Option {
	return func(r *Reconciler) { r.defaultFieldsetID = id }
}

// WithDefaultManufacturer sets the manufacturer id used when a candidate's
// vendor string does not survive normalization.
func WithDefaultManufacturer(id int) Option {
	return func(r *Reconciler) { r.defaultManufacturerID = id }
}

// New builds a Reconciler over the session.
func New(s *inventory.Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		session:               s,
		statusIDs:             DefaultStatusIDs(),
		ouTable:               clean.NewOUTable(),
		defaultModelID:        1,
		defaultCategoryID:     2,
		defaultFieldsetID:     2,
		defaultManufacturerID: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcileOne processes a single candidate end to end: normalize,
// validate, resolve, merge, upsert. Per-candidate data problems come back
// as errors the caller can skip; transport and contract failures propagate
// as fatal.
func (r *Reconciler) ReconcileOne(ctx context.Context, raw Candidate) (Outcome, error) {
	c := raw.Normalize()
	if err := c.Validate(); err != nil {
		return OutcomeSkipped, err
	}

	if c.Source != "" {
		ctx = logging.WithSource(ctx, c.Source)
	}
	ctx = logging.WithCandidate(ctx, c.Anchor())
	log := logging.Ctx(ctx)

	asset, err := Resolve(ctx, r.session, c)
	if err != nil {
		return OutcomeSkipped, err
	}

	creating := asset == nil
	if creating {
		asset, err = r.newAsset(ctx, c)
		if err != nil {
			return OutcomeSkipped, err
		}
	}

	r.apply(asset, c)
	// Evidence comes from the merged record, not just this observation, so
	// a research host keeps its compliance once any source has seen the
	// EDR agent.
	asset.StatusID = NextStatus(asset.StatusID, r.statusIDs, Evidence{
		Domain:  c.Domain,
		OrgUnit: c.OrgUnit,
		Lab:     r.ouTable.Lab(c.OrgUnit),
		EDR:     asset.Field(inventory.FieldEDR),
	})

	changed := inventory.Changed(asset)
	if err := inventory.Upsert(ctx, r.session, asset); err != nil {
		return OutcomeSkipped, err
	}

	if err := r.assign(ctx, asset, c); err != nil {
		return OutcomeSkipped, err
	}

	switch {
	case creating:
		log.Info().Int("asset_id", asset.ID).Str("asset_tag", asset.AssetTag).Msg("Created asset")
		return OutcomeCreated, nil
	case changed:
		log.Info().Int("asset_id", asset.ID).Str("asset_tag", asset.AssetTag).Msg("Updated asset")
		return OutcomeUpdated, nil
	default:
		log.Debug().Int("asset_id", asset.ID).Msg("Asset unchanged")
		return OutcomeUnchanged, nil
	}
}

// newAsset builds an unsaved asset for a candidate no cascade step could
// bind. The asset tag falls back through the candidate's anchors, since the
// remote service requires one.
func (r *Reconciler) newAsset(ctx context.Context, c Candidate) (*inventory.Asset, error) {
	asset := r.session.NewAsset()

	tag := c.AssetTag
	if tag == "" {
		tag = c.Serial
	}
	if tag == "" {
		tag = c.Name
	}
	asset.AssetTag = tag
	asset.StatusID = r.statusIDs.Pending

	modelID, err := r.resolveModel(ctx, c)
	if err != nil {
		return nil, err
	}
	asset.ModelID = modelID

	return asset, nil
}

// resolveModel maps the candidate's model name to a model id, creating the
// model (and its manufacturer) when it does not exist yet.
func (r *Reconciler) resolveModel(ctx context.Context, c Candidate) (int, error) {
	if c.ModelName == "" {
		return r.defaultModelID, nil
	}

	model, err := inventory.FindModelByName(ctx, r.session, c.ModelName)
	if err != nil {
		return 0, err
	}
	if model != nil {
		return model.ID, nil
	}

	manufacturerID := r.defaultManufacturerID
	if c.Manufacturer != "" {
		m, err := inventory.EnsureManufacturer(ctx, r.session, c.Manufacturer)
		if err != nil {
			return 0, err
		}
		manufacturerID = m.ID
	}

	model = &inventory.Model{
		ModelNumber:    c.ModelName,
		ManufacturerID: manufacturerID,
		CategoryID:     r.defaultCategoryID,
		FieldsetID:     r.defaultFieldsetID,
	}
	model.Name = c.ModelName
	if err := inventory.Create(ctx, r.session, model); err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Info().Int("model_id", model.ID).Str("model", model.Name).Msg("Created model")
	return model.ID, nil
}

// apply merges the candidate's observed values into the asset. Scalars
// overwrite when observed; accumulating fields union; MAC addresses fill
// empty slots without touching occupied ones.
func (r *Reconciler) apply(asset *inventory.Asset, c Candidate) {
	if c.Serial != "" {
		asset.Serial = c.Serial
	}
	if c.Name != "" {
		asset.Name = c.Name
	}
	if asset.Name == "" {
		asset.Name = asset.AssetTag
	}

	setIfObserved := func(field, value string) {
		if value != "" {
			asset.SetField(field, value)
		}
	}
	setIfObserved(inventory.FieldOS, c.OSName)
	setIfObserved(inventory.FieldOSVersion, c.OSVersion)
	setIfObserved(inventory.FieldOSBuild, c.OSBuild)
	setIfObserved(inventory.FieldOSType, clean.OSType(c.OSType))
	setIfObserved(inventory.FieldCPU, c.CPU)
	setIfObserved(inventory.FieldRAM, c.RAM)
	setIfObserved(inventory.FieldStorage, c.Storage)
	setIfObserved(inventory.FieldIP, c.IPAddress)
	setIfObserved(inventory.FieldLastUser, c.LastUser)
	setIfObserved(inventory.FieldOrgUnit, c.OrgUnit)

	if c.OrgUnit != "" {
		setIfObserved(inventory.FieldDept, r.ouTable.Department(c.OrgUnit))
		setIfObserved(inventory.FieldLab, r.ouTable.Lab(c.OrgUnit))
	}

	// Accumulating fields union across sources instead of overwriting.
	if c.Domain != "" {
		MergeField(asset, inventory.FieldDomain, c.Domain)
	}
	if c.EDR != "" {
		MergeField(asset, inventory.FieldEDR, c.EDR)
	}
	if c.Management != "" {
		MergeField(asset, inventory.FieldMgmt, c.Management)
	}

	if c.PurchaseDate != "" {
		asset.PurchaseDate = inventory.CoerceDate(c.PurchaseDate)
	}
	if c.PurchaseCost != "" {
		asset.PurchaseCost = inventory.CoerceFloat(c.PurchaseCost)
	}
	if c.OrderNumber != "" {
		asset.OrderNumber = c.OrderNumber
	}
	if c.WarrantyMonths != "" {
		asset.WarrantyMonths = inventory.CoerceInt(c.WarrantyMonths)
	}

	AssignMACSlots(asset, c.MACAddresses)
}

// assign checks the asset out to its last observed user. A holder change
// checks the previous holder in first; an asset already held by the
// observed user is left alone. Unknown and service accounts resolve to
// nobody and never disturb the assignment.
func (r *Reconciler) assign(ctx context.Context, asset *inventory.Asset, c Candidate) error {
	if c.LastUser == "" {
		return nil
	}

	user, err := inventory.FindUserByUsername(ctx, r.session, c.LastUser)
	if err != nil || user == nil {
		return err
	}
	if asset.AssignedToID == user.ID {
		return nil
	}
	if asset.AssignedToID != 0 {
		if err := asset.Checkin(ctx, r.session); err != nil {
			return err
		}
	}
	return asset.CheckoutToUser(ctx, r.session, user.ID)
}

// Result aggregates a batch run.
type Result struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int

	// Errors holds the per-candidate failures that were skipped.
	Errors []error
}

// Total is the number of candidates processed.
func (r *Result) Total() int {
	return r.Created + r.Updated + r.Unchanged + r.Skipped
}

// Run reconciles a batch. Per-candidate failures are logged, counted and
// collected; fatal infrastructure failures abort the batch immediately with
// the partial result.
func (r *Reconciler) Run(ctx context.Context, candidates []Candidate) (*Result, error) {
	result := &Result{}
	log := logging.Ctx(ctx)

	for i, c := range candidates {
		outcome, err := r.ReconcileOne(ctx, c)
		if err != nil {
			if errors.IsFatal(err) {
				return result, err
			}
			log.Warn().Int("index", i).Str("source", c.Source).Err(err).Msg("Skipping candidate")
			result.Skipped++
			result.Errors = append(result.Errors, err)
			continue
		}

		switch outcome {
		case OutcomeCreated:
			result.Created++
		case OutcomeUpdated:
			result.Updated++
		case OutcomeUnchanged:
			result.Unchanged++
		default:
			result.Skipped++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Int("skipped", result.Skipped).
		Msg("Reconciliation complete")
	return result, nil
}
