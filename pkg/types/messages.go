package types

// Client -> Server (websocket, /ws?draft_id=...&player_id=...)
// Ready: {}
//
// SubmitAction:
//   selection_id: number

// Server -> Client
// StateSnapshot:
//   version: number
//   state:
//     id: string
//     status: "waiting" | "banning" | "picking" | "completed" | "cancelled"
//     phase: number        // index into the 16-step action template
//     actions: Action[]    // type "ban" | "pick", team, active, selection_id, resolved_at
//     players: Player[]    // id|name|team|role|rating|ready
//     blue_rating: number
//     red_rating: number
//     bans: number[]
//     phase_started_at: timestamp
//     phase_limit: number  // nanoseconds
//     lobby: { name, password } // only once completed
//     cancel_reason: string   // only once cancelled
//
// Error:
//   error: string
