package mysql

// -----------------------------------------------------------------------------
// PROPERTIES
// -----------------------------------------------------------------------------

const insertPropertySQL = `
INSERT INTO properties
  (id, name, address, lat, lon, base_price, avg_stay_days, active)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const propertyColumns = `
  id, name, address, lat, lon, base_price, avg_stay_days, active, created_at, updated_at`

const getPropertySQL = `
SELECT` + propertyColumns + `
FROM properties
WHERE id = ?
`

const listPropertiesSQL = `
SELECT` + propertyColumns + `
FROM properties
WHERE active = 1
ORDER BY created_at, id
`

const updatePropertySQL = `
UPDATE properties
SET name = ?, address = ?, lat = ?, lon = ?, avg_stay_days = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deactivatePropertySQL = `
UPDATE properties
SET active = 0, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

// The denormalized nightly rate only moves through base-price modify/revert.
const syncPropertyPriceSQL = `
UPDATE properties
SET base_price = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const listFeedsSQL = `
SELECT f.property_id, f.source, f.url
FROM property_feeds f
JOIN properties p ON p.id = f.property_id
WHERE p.active = 1
ORDER BY f.property_id, f.source
`

// -----------------------------------------------------------------------------
// BASE PRICE REVISIONS
// -----------------------------------------------------------------------------

const basePriceColumns = `
  id, property_id, value, active, start_date, end_date, root_price_id, created_at, updated_at`

const insertBasePriceSQL = `
INSERT INTO property_base_prices
  (id, property_id, value, active, start_date, end_date, root_price_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const currentBasePriceSQL = `
SELECT` + basePriceColumns + `
FROM property_base_prices
WHERE property_id = ? AND active = 1 AND end_date IS NULL
`

// Chronological: the since-beginning root (NULL start_date) first.
const basePriceHistorySQL = `
SELECT` + basePriceColumns + `
FROM property_base_prices
WHERE property_id = ?
ORDER BY start_date IS NOT NULL, start_date, created_at
`

// FOR UPDATE serializes racing modify/revert calls on the same chain.
const basePriceChainForUpdateSQL = basePriceHistorySQL + `FOR UPDATE
`

const closeBasePriceSQL = `
UPDATE property_base_prices
SET end_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const reopenBasePriceSQL = `
UPDATE property_base_prices
SET end_date = NULL, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deleteBasePriceSQL = `
DELETE FROM property_base_prices
WHERE id = ?
`

// -----------------------------------------------------------------------------
// COST REVISIONS
// -----------------------------------------------------------------------------

const costColumns = `
  id, property_id, name, category, calculation_type, value, active,
  start_date, end_date, root_cost_id, created_at, updated_at`

const insertCostSQL = `
INSERT INTO property_costs
  (id, property_id, name, category, calculation_type, value, active, start_date, end_date, root_cost_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getCostSQL = `
SELECT` + costColumns + `
FROM property_costs
WHERE id = ?
`

// Current revision of every active cost concept.
const listCostsSQL = `
SELECT` + costColumns + `
FROM property_costs
WHERE property_id = ? AND active = 1 AND end_date IS NULL
ORDER BY created_at, id
`

const updateCostSQL = `
UPDATE property_costs
SET name = ?, category = ?, calculation_type = ?, value = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

// Deactivates the whole concept, every revision of the chain.
const softDeleteCostSQL = `
UPDATE property_costs
SET active = 0, updated_at = CURRENT_TIMESTAMP
WHERE id = ? OR root_cost_id = ?
`

const costChainSQL = `
SELECT` + costColumns + `
FROM property_costs
WHERE id = ? OR root_cost_id = ?
ORDER BY start_date IS NOT NULL, start_date, created_at
`

const costChainForUpdateSQL = costChainSQL + `FOR UPDATE
`

// Any revision id resolves to the chain's root.
const costRootSQL = `
SELECT COALESCE(root_cost_id, id)
FROM property_costs
WHERE id = ?
`

const closeCostSQL = `
UPDATE property_costs
SET end_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const reopenCostSQL = `
UPDATE property_costs
SET end_date = NULL, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deleteCostSQL = `
DELETE FROM property_costs
WHERE id = ?
`

// -----------------------------------------------------------------------------
// PRICING RULES
// -----------------------------------------------------------------------------

const ruleColumns = `
  id, property_id, name, start_date, end_date, profitability_percent, created_at, updated_at`

const insertRuleSQL = `
INSERT INTO pricing_rules
  (id, property_id, name, start_date, end_date, profitability_percent)
VALUES
  (?, ?, ?, ?, ?, ?)
`

const getRuleSQL = `
SELECT` + ruleColumns + `
FROM pricing_rules
WHERE id = ?
`

const listRulesSQL = `
SELECT` + ruleColumns + `
FROM pricing_rules
WHERE property_id = ?
ORDER BY start_date, id
`

const updateRuleSQL = `
UPDATE pricing_rules
SET name = ?, start_date = ?, end_date = ?, profitability_percent = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deleteRuleSQL = `
DELETE FROM pricing_rules
WHERE id = ?
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingColumns = `
  id, ical_uid, property_id, guest_id, check_in, check_out, summary, description,
  status, source, external_id, ical_url, last_synced_at, created_at, updated_at`

const insertBookingSQL = `
INSERT INTO bookings
  (id, ical_uid, property_id, guest_id, check_in, check_out, summary, description,
   status, source, external_id, ical_url, last_synced_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingSQL = `
SELECT` + bookingColumns + `
FROM bookings
WHERE id = ?
`

const getBookingByICalUIDSQL = `
SELECT` + bookingColumns + `
FROM bookings
WHERE ical_uid = ?
`

const listBookingsSQL = `
SELECT` + bookingColumns + `
FROM bookings
ORDER BY check_in, id
`

const listBookingsByPropertySQL = `
SELECT` + bookingColumns + `
FROM bookings
WHERE property_id = ?
ORDER BY check_in, id
`

// Half-open overlap: check_in < rangeEnd AND check_out > rangeStart.
const findConflictsSQL = `
SELECT` + bookingColumns + `
FROM bookings
WHERE property_id = ?
  AND status IN ('CONFIRMED', 'TENTATIVE')
  AND check_in < ?
  AND check_out > ?
`

const updateBookingSQL = `
UPDATE bookings
SET check_in = ?, check_out = ?, summary = ?, description = ?, status = ?, source = ?,
    external_id = ?, ical_url = ?, last_synced_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const deleteBookingSQL = `
DELETE FROM bookings
WHERE id = ?
`
