package ctxtable

// initValues holds the 8-bit context initialization values per initType,
// in table order (ITU-T H.265 tables 9-5 to 9-37).
var initValues = [3][NumContexts]uint8{
	// initType 0 (I slices)
	{
		// sao_merge_flag, sao_type_idx
		153, 200,
		// split_cu_flag
		139, 141, 157,
		// cu_transquant_bypass_flag
		154,
		// cu_skip_flag
		154, 154, 154,
		// cu_qp_delta_abs
		154, 154, 154,
		// pred_mode_flag
		154,
		// part_mode
		184, 154, 154, 154,
		// prev_intra_luma_pred_flag
		184,
		// intra_chroma_pred_mode
		63, 139,
		// merge_flag, merge_idx
		154, 154,
		// inter_pred_idc
		154, 154, 154, 154, 154,
		// ref_idx
		154, 154,
		// mvp_flag, rqt_root_cbf
		154, 154,
		// split_transform_flag
		153, 138, 138,
		// cbf_luma
		111, 141,
		// cbf_cb, cbf_cr
		94, 138, 182, 154, 154,
		// abs_mvd_greater0_flag, abs_mvd_greater1_flag
		154, 154,
		// transform_skip_flag (luma, chroma)
		139, 139,
		// last_sig_coeff_x_prefix
		110, 110, 124, 125, 140, 153, 125, 127, 140, 109, 111, 143, 127, 111,
		79, 108, 123, 63,
		// last_sig_coeff_y_prefix
		110, 110, 124, 125, 140, 153, 125, 127, 140, 109, 111, 143, 127, 111,
		79, 108, 123, 63,
		// coded_sub_block_flag
		91, 171, 134, 141,
		// sig_coeff_flag
		111, 111, 125, 110, 110, 94, 124, 108, 124, 107, 125, 141, 179, 153,
		125, 107, 125, 141, 179, 153, 125, 107, 125, 141, 179, 153, 125, 140,
		139, 182, 182, 152, 136, 152, 136, 153, 136, 139, 111, 136, 139, 111,
		141, 111,
		// coeff_abs_level_greater1_flag
		140, 92, 137, 138, 140, 152, 138, 139, 153, 74, 149, 92, 139, 107,
		122, 152, 140, 179, 166, 182, 140, 227, 122, 197,
		// coeff_abs_level_greater2_flag
		138, 153, 136, 167, 152, 152,
		// log2_res_scale_abs_plus1
		154, 154, 154, 154, 154, 154, 154, 154,
		// res_scale_sign_flag
		154, 154,
		// cu_chroma_qp_offset_flag, cu_chroma_qp_offset_idx
		154, 154,
		// explicit_rdpcm_flag
		139, 139,
		// explicit_rdpcm_dir_flag
		139, 139,
	},
	// initType 1
	{
		153, 185,
		107, 139, 126,
		154,
		197, 185, 201,
		154, 154, 154,
		149,
		154, 139, 154, 154,
		154,
		152, 139,
		110, 122,
		95, 79, 63, 31, 31,
		153, 153,
		168, 79,
		124, 138, 94,
		153, 111,
		149, 107, 167, 154, 154,
		140, 198,
		139, 139,
		125, 110, 94, 110, 95, 79, 125, 111, 110, 78, 110, 111, 111, 95,
		94, 108, 123, 108,
		125, 110, 94, 110, 95, 79, 125, 111, 110, 78, 110, 111, 111, 95,
		94, 108, 123, 108,
		121, 140, 61, 154,
		155, 154, 139, 153, 139, 123, 123, 63, 153, 166, 183, 140, 136, 153,
		154, 166, 183, 140, 136, 153, 154, 166, 183, 140, 136, 153, 154, 170,
		153, 123, 123, 107, 121, 107, 121, 167, 151, 183, 140, 151, 183, 140,
		140, 140,
		154, 196, 196, 167, 154, 152, 167, 182, 182, 134, 149, 136, 153, 121,
		136, 137, 169, 194, 166, 167, 154, 167, 137, 182,
		107, 167, 91, 122, 107, 167,
		154, 154, 154, 154, 154, 154, 154, 154,
		154, 154,
		154, 154,
		139, 139,
		139, 139,
	},
	// initType 2
	{
		153, 160,
		107, 139, 126,
		154,
		197, 185, 201,
		154, 154, 154,
		134,
		154, 139, 154, 154,
		183,
		152, 139,
		154, 137,
		95, 79, 63, 31, 31,
		153, 153,
		168, 79,
		224, 167, 122,
		153, 111,
		149, 92, 167, 154, 154,
		169, 198,
		139, 139,
		125, 110, 124, 110, 95, 94, 125, 111, 111, 79, 125, 126, 111, 111,
		79, 108, 123, 93,
		125, 110, 124, 110, 95, 94, 125, 111, 111, 79, 125, 126, 111, 111,
		79, 108, 123, 93,
		121, 140, 61, 154,
		170, 154, 139, 153, 139, 123, 123, 63, 124, 166, 183, 140, 136, 153,
		154, 166, 183, 140, 136, 153, 154, 166, 183, 140, 136, 153, 154, 170,
		153, 138, 138, 122, 121, 122, 121, 167, 151, 183, 140, 151, 183, 140,
		140, 140,
		154, 196, 167, 167, 154, 152, 167, 182, 182, 134, 149, 136, 153, 121,
		136, 122, 169, 208, 166, 167, 154, 152, 167, 182,
		107, 167, 91, 107, 107, 167,
		154, 154, 154, 154, 154, 154, 154, 154,
		154, 154,
		154, 154,
		139, 139,
		139, 139,
	},
}
