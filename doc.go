/*
Package cfddns keeps a single Cloudflare DNS record pointed at the caller's public IP address.

Usage will always start with [cfddns.New],
which returns a [Workflow] bound to a [Settings] value and the [SettingsStore] that persists it.
The workflow drives three operations:
[Workflow.Setup] collects and validates the API token, zone ID, and record ID;
[Workflow.Update] resolves the public address and pushes it to the record;
[Workflow.Reset] clears the stored settings.

Provider calls never return errors.
Each operation reports a value ([State], [UpdateResult], a bool, or a slice)
and writes one human readable line per outcome to the configured [UI].
Additional configuration options are listed in the docs for New.
*/
package cfddns
