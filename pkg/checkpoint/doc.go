// Package checkpoint writes and reads trained voras voice-conversion models.
//
// A checkpoint file is a self-describing artifact holding the model weights
// and enough configuration to rebuild the network and its feature pipeline:
//
//	[4 bytes: magic "VRCK"]
//	[4 bytes: format version (uint32 LE)]
//	[msgpack map]
//	    weight                 name -> tensor, sorted by name
//	    config                 hyperparameter values, in key order
//	    params                 hyperparameter name -> value, same keys and order
//	    version                "voras_beta"
//	    info                   "<epoch>epoch"
//	    sr                     sample rate label supplied by the trainer
//	    f0                     always 0
//	    embedder_name          feature embedder that conditioned training
//	    embedder_output_layer  embedder layer the features were taken from
//	    speaker_info           "<index>" -> speaker name (multi-speaker only)
//
// Encoding is deterministic: the same inputs always produce the same bytes.
//
// Example usage:
//
//	err := checkpoint.Save(model, "models/checkpoints/alice.pth", checkpoint.Options{
//	    Family:              checkpoint.FamilyVoras,
//	    SampleRate:          "24k",
//	    EmbedderName:        "hubert_base",
//	    EmbedderChannels:    768,
//	    EmbedderOutputLayer: 12,
//	    Epoch:               100,
//	})
//
//	a, err := checkpoint.Load("models/checkpoints/alice.pth")
package checkpoint
