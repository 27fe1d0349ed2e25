package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"domu/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valUUID(p *uuid.UUID) any {
	if p == nil {
		return nil
	}
	return p.String()
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

// DATE columns take the civil date only; passing a full timestamp trips
// strict-mode truncation warnings.
func dateArg(t time.Time) string { return domain.Date(t).Format(domain.DateLayout) }
func valDate(p *time.Time) any {
	if p == nil {
		return nil
	}
	return dateArg(*p)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func f64Ptr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
func uuidPtr(nu uuid.NullUUID) *uuid.UUID {
	if !nu.Valid {
		return nil
	}
	u := nu.UUID
	return &u
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// -----------------------------------------------------------------------------
// PROPERTIES
// -----------------------------------------------------------------------------

// CreateProperty inserts the property row and the root revision of its
// base-price chain in one transaction: a half-seeded property would make
// every later chain operation fail with ErrIntegrity.
func (r *Repo) CreateProperty(ctx context.Context, p domain.Property, root domain.BasePrice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertPropertySQL,
		p.ID.String(),
		p.Name,
		p.Address,
		valF64(p.Lat),
		valF64(p.Lon),
		p.BasePrice,
		p.AvgStayDays,
		p.Active,
	); err != nil {
		return err
	}
	if err := r.insertBasePrice(ctx, tx, root); err != nil {
		return err
	}
	return tx.Commit()
}

func scanProperty(row rowScanner) (domain.Property, error) {
	var p domain.Property
	var lat, lon sql.NullFloat64
	var updatedAt sql.NullTime
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Address,
		&lat, &lon,
		&p.BasePrice,
		&p.AvgStayDays,
		&p.Active,
		&p.CreatedAt,
		&updatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	p.Lat, p.Lon = f64Ptr(lat), f64Ptr(lon)
	p.UpdatedAt = timePtr(updatedAt)
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id.String()))
	if err == sql.ErrNoRows {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, updatePropertySQL,
		p.Name,
		p.Address,
		valF64(p.Lat),
		valF64(p.Lon),
		p.AvgStayDays,
		p.ID.String(),
	)
	return err
}

func (r *Repo) DeactivateProperty(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, deactivatePropertySQL, id.String())
	return err
}

func (r *Repo) ListFeeds(ctx context.Context) ([]domain.Feed, error) {
	rows, err := r.db.QueryContext(ctx, listFeedsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Feed
	for rows.Next() {
		var f domain.Feed
		if err := rows.Scan(&f.PropertyID, &f.Source, &f.URL); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// BASE PRICE REVISIONS
// -----------------------------------------------------------------------------

func scanBasePrice(row rowScanner) (domain.BasePrice, error) {
	var bp domain.BasePrice
	var start, end, updatedAt sql.NullTime
	var root uuid.NullUUID
	if err := row.Scan(
		&bp.ID,
		&bp.PropertyID,
		&bp.Value,
		&bp.Active,
		&start, &end,
		&root,
		&bp.CreatedAt,
		&updatedAt,
	); err != nil {
		return domain.BasePrice{}, err
	}
	bp.StartDate, bp.EndDate = timePtr(start), timePtr(end)
	bp.RootPriceID = uuidPtr(root)
	bp.UpdatedAt = timePtr(updatedAt)
	return bp, nil
}

func (r *Repo) insertBasePrice(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, bp domain.BasePrice) error {
	_, err := q.ExecContext(ctx, insertBasePriceSQL,
		bp.ID.String(),
		bp.PropertyID.String(),
		bp.Value,
		bp.Active,
		valDate(bp.StartDate),
		valDate(bp.EndDate),
		valUUID(bp.RootPriceID),
	)
	return err
}

func (r *Repo) CurrentBasePrice(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	bp, err := scanBasePrice(r.db.QueryRowContext(ctx, currentBasePriceSQL, propertyID.String()))
	if err == sql.ErrNoRows {
		return domain.BasePrice{}, fmt.Errorf("%w: property %s has no open base price revision", domain.ErrIntegrity, propertyID)
	}
	return bp, err
}

func (r *Repo) BasePriceHistory(ctx context.Context, propertyID uuid.UUID) ([]domain.BasePrice, error) {
	return r.basePriceChain(ctx, r.db, basePriceHistorySQL, propertyID)
}

func (r *Repo) basePriceChain(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, query string, propertyID uuid.UUID) ([]domain.BasePrice, error) {
	rows, err := q.QueryContext(ctx, query, propertyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BasePrice
	for rows.Next() {
		bp, err := scanBasePrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

func (r *Repo) ModifyBasePrice(ctx context.Context, propertyID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.BasePrice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.BasePrice{}, err
	}
	defer tx.Rollback()

	chain, err := r.basePriceChain(ctx, tx, basePriceChainForUpdateSQL, propertyID)
	if err != nil {
		return domain.BasePrice{}, err
	}
	if len(chain) == 0 {
		return domain.BasePrice{}, domain.ErrNotFound
	}
	cur := chain[len(chain)-1]
	if cur.EndDate != nil {
		return domain.BasePrice{}, fmt.Errorf("%w: property %s has no open base price revision", domain.ErrIntegrity, propertyID)
	}
	// Re-checked under the chain lock: a start at or before the current
	// revision's would leave two revisions covering the same dates.
	if cur.StartDate != nil && !domain.Date(startDate).After(domain.Date(*cur.StartDate)) {
		return domain.BasePrice{}, fmt.Errorf("%w: effective date must be after the current revision's start", domain.ErrValidation)
	}

	// Close the current revision the day before the new one starts: no
	// overlap, no gap.
	closed := domain.Date(startDate).AddDate(0, 0, -1)
	if _, err := tx.ExecContext(ctx, closeBasePriceSQL, dateArg(closed), cur.ID.String()); err != nil {
		return domain.BasePrice{}, err
	}

	root := cur.RootID()
	start := domain.Date(startDate)
	next := domain.BasePrice{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		Value:       value,
		Active:      true,
		StartDate:   &start,
		RootPriceID: &root,
	}
	if err := r.insertBasePrice(ctx, tx, next); err != nil {
		return domain.BasePrice{}, err
	}
	if _, err := tx.ExecContext(ctx, syncPropertyPriceSQL, value, propertyID.String()); err != nil {
		return domain.BasePrice{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BasePrice{}, err
	}
	return next, nil
}

func (r *Repo) RevertBasePrice(ctx context.Context, propertyID uuid.UUID) (domain.BasePrice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.BasePrice{}, err
	}
	defer tx.Rollback()

	chain, err := r.basePriceChain(ctx, tx, basePriceChainForUpdateSQL, propertyID)
	if err != nil {
		return domain.BasePrice{}, err
	}
	if len(chain) < 2 {
		return domain.BasePrice{}, fmt.Errorf("%w: nothing to revert", domain.ErrNotFound)
	}
	newest, prev := chain[len(chain)-1], chain[len(chain)-2]

	if _, err := tx.ExecContext(ctx, deleteBasePriceSQL, newest.ID.String()); err != nil {
		return domain.BasePrice{}, err
	}
	if _, err := tx.ExecContext(ctx, reopenBasePriceSQL, prev.ID.String()); err != nil {
		return domain.BasePrice{}, err
	}
	if _, err := tx.ExecContext(ctx, syncPropertyPriceSQL, prev.Value, propertyID.String()); err != nil {
		return domain.BasePrice{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BasePrice{}, err
	}
	prev.EndDate = nil
	return prev, nil
}

// -----------------------------------------------------------------------------
// COST REVISIONS
// -----------------------------------------------------------------------------

func scanCost(row rowScanner) (domain.Cost, error) {
	var c domain.Cost
	var start, end, updatedAt sql.NullTime
	var root uuid.NullUUID
	if err := row.Scan(
		&c.ID,
		&c.PropertyID,
		&c.Name,
		&c.Category,
		&c.CalculationType,
		&c.Value,
		&c.Active,
		&start, &end,
		&root,
		&c.CreatedAt,
		&updatedAt,
	); err != nil {
		return domain.Cost{}, err
	}
	c.StartDate, c.EndDate = timePtr(start), timePtr(end)
	c.RootCostID = uuidPtr(root)
	c.UpdatedAt = timePtr(updatedAt)
	return c, nil
}

func (r *Repo) CreateCost(ctx context.Context, c domain.Cost) error {
	_, err := r.db.ExecContext(ctx, insertCostSQL,
		c.ID.String(),
		c.PropertyID.String(),
		c.Name,
		string(c.Category),
		string(c.CalculationType),
		c.Value,
		c.Active,
		valDate(c.StartDate),
		valDate(c.EndDate),
		valUUID(c.RootCostID),
	)
	return err
}

func (r *Repo) GetCost(ctx context.Context, id uuid.UUID) (domain.Cost, error) {
	c, err := scanCost(r.db.QueryRowContext(ctx, getCostSQL, id.String()))
	if err == sql.ErrNoRows {
		return domain.Cost{}, domain.ErrNotFound
	}
	return c, err
}

func (r *Repo) ListCosts(ctx context.Context, propertyID uuid.UUID) ([]domain.Cost, error) {
	rows, err := r.db.QueryContext(ctx, listCostsSQL, propertyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Cost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateCost(ctx context.Context, c domain.Cost) error {
	_, err := r.db.ExecContext(ctx, updateCostSQL,
		c.Name,
		string(c.Category),
		string(c.CalculationType),
		c.Value,
		c.ID.String(),
	)
	return err
}

func (r *Repo) SoftDeleteCost(ctx context.Context, id uuid.UUID) error {
	root, err := r.costRoot(ctx, r.db, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, softDeleteCostSQL, root.String(), root.String())
	return err
}

func (r *Repo) costRoot(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id uuid.UUID) (uuid.UUID, error) {
	var root uuid.UUID
	err := q.QueryRowContext(ctx, costRootSQL, id.String()).Scan(&root)
	if err == sql.ErrNoRows {
		return uuid.UUID{}, domain.ErrNotFound
	}
	return root, err
}

func (r *Repo) costChain(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, query string, root uuid.UUID) ([]domain.Cost, error) {
	rows, err := q.QueryContext(ctx, query, root.String(), root.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Cost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CostHistory(ctx context.Context, costID uuid.UUID) ([]domain.Cost, error) {
	root, err := r.costRoot(ctx, r.db, costID)
	if err != nil {
		return nil, err
	}
	return r.costChain(ctx, r.db, costChainSQL, root)
}

func (r *Repo) ModifyCost(ctx context.Context, costID uuid.UUID, value decimal.Decimal, startDate time.Time) (domain.Cost, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Cost{}, err
	}
	defer tx.Rollback()

	root, err := r.costRoot(ctx, tx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	chain, err := r.costChain(ctx, tx, costChainForUpdateSQL, root)
	if err != nil {
		return domain.Cost{}, err
	}
	if len(chain) == 0 {
		return domain.Cost{}, domain.ErrNotFound
	}
	cur := chain[len(chain)-1]
	if cur.StartDate != nil && !domain.Date(startDate).After(domain.Date(*cur.StartDate)) {
		return domain.Cost{}, fmt.Errorf("%w: effective date must be after the current revision's start", domain.ErrValidation)
	}

	closed := domain.Date(startDate).AddDate(0, 0, -1)
	if _, err := tx.ExecContext(ctx, closeCostSQL, dateArg(closed), cur.ID.String()); err != nil {
		return domain.Cost{}, err
	}

	start := domain.Date(startDate)
	next := cur
	next.ID = uuid.New()
	next.Value = value
	next.StartDate = &start
	next.EndDate = nil
	next.RootCostID = &root
	if _, err := tx.ExecContext(ctx, insertCostSQL,
		next.ID.String(),
		next.PropertyID.String(),
		next.Name,
		string(next.Category),
		string(next.CalculationType),
		next.Value,
		next.Active,
		valDate(next.StartDate),
		nil,
		root.String(),
	); err != nil {
		return domain.Cost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Cost{}, err
	}
	return next, nil
}

func (r *Repo) RevertCost(ctx context.Context, costID uuid.UUID) (domain.Cost, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Cost{}, err
	}
	defer tx.Rollback()

	root, err := r.costRoot(ctx, tx, costID)
	if err != nil {
		return domain.Cost{}, err
	}
	chain, err := r.costChain(ctx, tx, costChainForUpdateSQL, root)
	if err != nil {
		return domain.Cost{}, err
	}
	if len(chain) < 2 {
		return domain.Cost{}, fmt.Errorf("%w: nothing to revert", domain.ErrNotFound)
	}
	newest, prev := chain[len(chain)-1], chain[len(chain)-2]

	if _, err := tx.ExecContext(ctx, deleteCostSQL, newest.ID.String()); err != nil {
		return domain.Cost{}, err
	}
	if _, err := tx.ExecContext(ctx, reopenCostSQL, prev.ID.String()); err != nil {
		return domain.Cost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Cost{}, err
	}
	prev.EndDate = nil
	return prev, nil
}

// -----------------------------------------------------------------------------
// PRICING RULES
// -----------------------------------------------------------------------------

func scanRule(row rowScanner) (domain.PricingRule, error) {
	var r domain.PricingRule
	var updatedAt sql.NullTime
	if err := row.Scan(
		&r.ID,
		&r.PropertyID,
		&r.Name,
		&r.StartDate,
		&r.EndDate,
		&r.ProfitabilityPercent,
		&r.CreatedAt,
		&updatedAt,
	); err != nil {
		return domain.PricingRule{}, err
	}
	r.UpdatedAt = timePtr(updatedAt)
	return r, nil
}

func (r *Repo) CreateRule(ctx context.Context, pr domain.PricingRule) error {
	_, err := r.db.ExecContext(ctx, insertRuleSQL,
		pr.ID.String(),
		pr.PropertyID.String(),
		pr.Name,
		dateArg(pr.StartDate),
		dateArg(pr.EndDate),
		pr.ProfitabilityPercent,
	)
	return err
}

func (r *Repo) GetRule(ctx context.Context, id uuid.UUID) (domain.PricingRule, error) {
	pr, err := scanRule(r.db.QueryRowContext(ctx, getRuleSQL, id.String()))
	if err == sql.ErrNoRows {
		return domain.PricingRule{}, domain.ErrNotFound
	}
	return pr, err
}

func (r *Repo) ListRules(ctx context.Context, propertyID uuid.UUID) ([]domain.PricingRule, error) {
	rows, err := r.db.QueryContext(ctx, listRulesSQL, propertyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PricingRule
	for rows.Next() {
		pr, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateRule(ctx context.Context, pr domain.PricingRule) error {
	_, err := r.db.ExecContext(ctx, updateRuleSQL,
		pr.Name,
		dateArg(pr.StartDate),
		dateArg(pr.EndDate),
		pr.ProfitabilityPercent,
		pr.ID.String(),
	)
	return err
}

func (r *Repo) DeleteRule(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, deleteRuleSQL, id.String())
	return err
}

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

func scanBooking(row rowScanner) (domain.Booking, error) {
	var b domain.Booking
	var guest uuid.NullUUID
	var description, externalID, icalURL sql.NullString
	var lastSynced, updatedAt sql.NullTime
	if err := row.Scan(
		&b.ID,
		&b.ICalUID,
		&b.PropertyID,
		&guest,
		&b.CheckIn,
		&b.CheckOut,
		&b.Summary,
		&description,
		&b.Status,
		&b.Source,
		&externalID,
		&icalURL,
		&lastSynced,
		&b.CreatedAt,
		&updatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.GuestID = uuidPtr(guest)
	b.Description = strPtr(description)
	b.ExternalID, b.ICalURL = strPtr(externalID), strPtr(icalURL)
	b.LastSyncedAt = timePtr(lastSynced)
	b.UpdatedAt = timePtr(updatedAt)
	return b, nil
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID.String(),
		b.ICalUID,
		b.PropertyID.String(),
		valUUID(b.GuestID),
		dateArg(b.CheckIn),
		dateArg(b.CheckOut),
		b.Summary,
		valStr(b.Description),
		string(b.Status),
		string(b.Source),
		valStr(b.ExternalID),
		valStr(b.ICalURL),
		valTime(b.LastSyncedAt),
	)
	return err
}

func (r *Repo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id.String()))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) GetBookingByICalUID(ctx context.Context, uid string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingByICalUIDSQL, uid))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) listBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return r.listBookings(ctx, listBookingsSQL)
}

func (r *Repo) ListBookingsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Booking, error) {
	return r.listBookings(ctx, listBookingsByPropertySQL, propertyID.String())
}

func (r *Repo) FindConflicts(ctx context.Context, propertyID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]domain.Booking, error) {
	query := findConflictsSQL
	args := []any{propertyID.String(), dateArg(end), dateArg(start)}
	if excludeID != nil {
		query += "  AND id <> ?\n"
		args = append(args, excludeID.String())
	}
	return r.listBookings(ctx, query, args...)
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, updateBookingSQL,
		dateArg(b.CheckIn),
		dateArg(b.CheckOut),
		b.Summary,
		valStr(b.Description),
		string(b.Status),
		string(b.Source),
		valStr(b.ExternalID),
		valStr(b.ICalURL),
		valTime(b.LastSyncedAt),
		b.ID.String(),
	)
	return err
}

func (r *Repo) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, deleteBookingSQL, id.String())
	return err
}
