package store

// Column types are chosen to be valid in both SQLite and PostgreSQL.
// Timestamps are stored as fixed-width UTC text so they sort lexically.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS calculations (
    id                   TEXT PRIMARY KEY,
    created_at           TEXT NOT NULL,
    source               TEXT NOT NULL,
    batch_id             TEXT NOT NULL DEFAULT '',
    machine_id           TEXT NOT NULL,
    material_id          TEXT NOT NULL,
    initial_weight_kg    DOUBLE PRECISION NOT NULL,
    final_weight_kg      DOUBLE PRECISION NOT NULL,
    process_time_minutes DOUBLE PRECISION NOT NULL,
    kc_value             DOUBLE PRECISION NOT NULL,
    standby_power_kw     DOUBLE PRECISION NOT NULL,
    carbon_intensity     DOUBLE PRECISION NOT NULL,
    density              DOUBLE PRECISION NOT NULL,
    removed_mass_kg      DOUBLE PRECISION NOT NULL,
    removed_volume_cm3   DOUBLE PRECISION NOT NULL,
    processing_kwh       DOUBLE PRECISION NOT NULL,
    idle_kwh             DOUBLE PRECISION NOT NULL,
    total_kwh            DOUBLE PRECISION NOT NULL,
    total_carbon_kg      DOUBLE PRECISION NOT NULL,
    efficiency_score     INTEGER NOT NULL,
    tips                 TEXT NOT NULL DEFAULT '[]',
    tariff_type          TEXT NOT NULL DEFAULT '',
    operation_start      TEXT NOT NULL DEFAULT '',
    operation_end        TEXT NOT NULL DEFAULT '',
    energy_cost          DOUBLE PRECISION,
    currency             TEXT NOT NULL DEFAULT '',
    applied_rate         DOUBLE PRECISION,
    minutes_day          DOUBLE PRECISION,
    minutes_peak         DOUBLE PRECISION,
    minutes_night        DOUBLE PRECISION,
    cost_convention      TEXT NOT NULL DEFAULT '',
    cost_error           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS electricity_rates (
    region               TEXT NOT NULL,
    currency             TEXT NOT NULL,
    tariff_type          TEXT NOT NULL,
    single_rate_per_kwh  DOUBLE PRECISION,
    day_rate_per_kwh     DOUBLE PRECISION,
    peak_rate_per_kwh    DOUBLE PRECISION,
    night_rate_per_kwh   DOUBLE PRECISION,
    day_start            TEXT NOT NULL DEFAULT '',
    peak_start           TEXT NOT NULL DEFAULT '',
    night_start          TEXT NOT NULL DEFAULT '',
    updated_at           TEXT NOT NULL,
    PRIMARY KEY (region, currency, tariff_type)
);

CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_at);
CREATE INDEX IF NOT EXISTS idx_calculations_machine ON calculations(machine_id);
CREATE INDEX IF NOT EXISTS idx_calculations_batch ON calculations(batch_id);
`
